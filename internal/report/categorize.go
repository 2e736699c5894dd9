// Package report summarises a task list for the stats dashboard and renders
// it as plain text.
package report

import (
	"math"
	"sort"

	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/palette"
)

// Count is one slice of a distribution chart.
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
	Color string `json:"fill" yaml:"fill"`
}

// Summary is everything the stats dashboard shows.
type Summary struct {
	Total             int          `json:"total" yaml:"total"`
	Completed         int          `json:"completed" yaml:"completed"`
	AverageProgress   int          `json:"averageProgress" yaml:"averageProgress"`
	CompletionPercent int          `json:"completionPercent" yaml:"completionPercent"`
	Categories        []Count      `json:"categories" yaml:"categories"`
	Statuses          []Count      `json:"statuses" yaml:"statuses"`
	CompletedTasks    []model.Task `json:"completedTasks" yaml:"completedTasks"`
}

// Summarize computes the dashboard figures. Categories keep first-seen
// order; statuses follow model.Statuses and omit empty ones.
func Summarize(tasks []model.Task, styles *palette.Resolver) Summary {
	if styles == nil {
		styles = palette.Default()
	}

	s := Summary{
		Total:          len(tasks),
		Categories:     []Count{},
		Statuses:       []Count{},
		CompletedTasks: []model.Task{},
	}

	categoryIndex := make(map[string]int)
	statusCounts := make(map[model.Status]int)
	progressSum := 0

	for _, task := range tasks {
		progressSum += task.Progress
		statusCounts[task.Status]++

		name := task.CategoryOrDefault()
		i, ok := categoryIndex[name]
		if !ok {
			i = len(s.Categories)
			categoryIndex[name] = i
			s.Categories = append(s.Categories, Count{Name: name, Color: styles.Style(name).Hex})
		}
		s.Categories[i].Value++

		if task.Status == model.StatusDone {
			s.CompletedTasks = append(s.CompletedTasks, task)
		}
	}

	for _, status := range model.Statuses {
		if n := statusCounts[status]; n > 0 {
			s.Statuses = append(s.Statuses, Count{Name: string(status), Value: n, Color: palette.StatusColors[status].Hex})
		}
	}

	s.Completed = len(s.CompletedTasks)
	s.AverageProgress = roundHalfUp(float64(progressSum) / float64(max(len(tasks), 1)))
	if len(tasks) > 0 {
		s.CompletionPercent = roundHalfUp(float64(s.Completed) * 100 / float64(len(tasks)))
	}

	// Most recently finished first.
	sort.SliceStable(s.CompletedTasks, func(i, j int) bool {
		return s.CompletedTasks[i].EndDate.After(s.CompletedTasks[j].EndDate)
	})

	return s
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
