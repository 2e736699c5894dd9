package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/palette"
	"github.com/artyomia/marketingganttai/internal/timeline"
)

// Section headers for text output.
const (
	TextHeaderOverview   = "Overall Project Health"
	TextHeaderCategories = "\nTasks by Category"
	TextHeaderStatuses   = "\nTasks by Status"
	TextHeaderCompleted  = "\nCompleted Tasks"
	TextNoCompleted      = "    No completed tasks yet. Keep going!"
)

// Gantt glyphs.
const (
	glyphBar     = "█"
	glyphDoneBar = "▓"
	glyphEmpty   = "·"
	glyphWeekend = " "
	glyphNow     = "│"
	labelWidth   = 26
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// PrintTasks prints the task list as a table.
func PrintTasks(out io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks yet. Use 'add' or 'generate' to create some.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ID", "NAME", "CATEGORY", "START", "END", "STATUS", "PROGRESS", "ASSIGNEES")

	for _, task := range tasks {
		t.Row(
			task.ID,
			task.Name,
			task.CategoryOrDefault(),
			task.StartDate.String(),
			task.EndDate.String(),
			string(task.Status),
			fmt.Sprintf("%d%%", task.Progress),
			task.AssigneeLabel(),
		)
	}
	fmt.Fprintln(out, t.Render())
}

// PrintTask prints one task as key/value lines.
func PrintTask(out io.Writer, task model.Task) {
	fmt.Fprintf(out, "ID:          %s\n", task.ID)
	fmt.Fprintf(out, "Name:        %s\n", task.Name)
	fmt.Fprintf(out, "Category:    %s\n", task.CategoryOrDefault())
	fmt.Fprintf(out, "Dates:       %s to %s\n", task.StartDate, task.EndDate)
	fmt.Fprintf(out, "Status:      %s\n", task.Status)
	fmt.Fprintf(out, "Progress:    %d%%\n", task.Progress)
	fmt.Fprintf(out, "Assignees:   %s\n", task.AssigneeLabel())
	if task.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", task.Description)
	}
}

// PrintStats prints the dashboard summary.
func PrintStats(out io.Writer, s Summary) {
	fmt.Fprintln(out, TextHeaderOverview)
	fmt.Fprintf(out, "    Tracking %d active tasks\n", s.Total)
	fmt.Fprintf(out, "    Average progress: %d%%\n", s.AverageProgress)
	fmt.Fprintf(out, "    Completed: %d of %d (%d%%)\n", s.Completed, s.Total, s.CompletionPercent)

	if len(s.Categories) > 0 {
		fmt.Fprintln(out, TextHeaderCategories)
		for _, c := range s.Categories {
			fmt.Fprintf(out, "    • %-20s %3d\n", c.Name, c.Value)
		}
	}

	if len(s.Statuses) > 0 {
		fmt.Fprintln(out, TextHeaderStatuses)
		for _, c := range s.Statuses {
			fmt.Fprintf(out, "    • %-20s %3d\n", c.Name, c.Value)
		}
	}

	fmt.Fprintln(out, TextHeaderCompleted)
	if len(s.CompletedTasks) == 0 {
		fmt.Fprintln(out, TextNoCompleted)
		return
	}
	for _, task := range s.CompletedTasks {
		fmt.Fprintf(out, "    • %s (%s, finished %s)\n", task.Name, task.CategoryOrDefault(), task.EndDate)
	}
}

// TimelineOptions controls the terminal Gantt chart.
type TimelineOptions struct {
	// Color paints bars with their category colour.
	Color  bool
	Styles *palette.Resolver
}

// PrintTimeline draws layout with one character per day.
func PrintTimeline(out io.Writer, layout timeline.Layout, opts TimelineOptions) {
	styles := opts.Styles
	if styles == nil {
		styles = palette.Default()
	}
	days := len(layout.Days)
	nowCol := -1
	if layout.NowOffset != nil && layout.DayWidth > 0 {
		nowCol = int(*layout.NowOffset / layout.DayWidth)
	}

	fmt.Fprintf(out, "Timeline %s to %s (%d days)\n", layout.Window.Start, layout.Window.End, layout.Window.TotalDays)

	var months strings.Builder
	for _, m := range layout.Months {
		months.WriteString(fitLabel(m.Label, m.Days))
	}
	fmt.Fprintf(out, "%s%s\n", strings.Repeat(" ", labelWidth), months.String())

	var dayRow strings.Builder
	for _, d := range layout.Days {
		fmt.Fprint(&dayRow, d.Date.Day()%10)
	}
	fmt.Fprintf(out, "%s%s\n", strings.Repeat(" ", labelWidth), dayRow.String())

	for _, g := range layout.Groups {
		fmt.Fprintln(out, headerStyle.Render(g.Category))
		for _, bar := range g.Bars {
			cells := make([]string, days)
			for i, d := range layout.Days {
				cells[i] = glyphEmpty
				if d.Weekend {
					cells[i] = glyphWeekend
				}
				if i == nowCol {
					cells[i] = glyphNow
				}
			}

			start := int(bar.Left / layout.DayWidth)
			span := int(bar.Width / layout.DayWidth)
			glyph := glyphBar
			if bar.Done {
				glyph = glyphDoneBar
			}
			run := ""
			for i := start; i < start+span; i++ {
				if i >= 0 && i < days {
					cells[i] = glyph
					run += glyph
				}
			}
			row := strings.Join(cells, "")
			if opts.Color && run != "" {
				row = strings.Replace(row, run, styles.Terminal(bar.Task.Category).Render(run), 1)
			}
			fmt.Fprintf(out, "  %s%s  %s\n", fitLabel(bar.Label, labelWidth-2), row, bar.Assignees)
		}
	}
}

// fitLabel pads or cuts s to exactly width runes.
func fitLabel(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}
