// Package model defines the core data structures for the marketing task tracker.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of a task.
type Status string

// Task status constants.
const (
	StatusTodo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
	StatusBlocked    Status = "Blocked"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, known := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: must be one of To Do, In Progress, Done, Blocked", s)
}

// Default field values applied when a task or record leaves them empty.
const (
	DefaultName          = "New Task"
	DefaultCategory      = "Digital"
	UncategorizedLabel   = "Uncategorized"
	DefaultStatus        = StatusTodo
	MaxProgress          = 100
	GeneratedDescription = "Auto-generated task for %s"
)

// DefaultCategories is the suggested, non-exclusive category set.
var DefaultCategories = []string{
	"Digital",
	"Event",
	"Sale",
	"Content",
	"Design",
	"Planning",
	"Review",
}

// DefaultAssignees is the roster offered to the plan generator.
var DefaultAssignees = []string{"Tuan", "Tu"}

// ErrInvalidTask is returned by Validate when a task breaks an edit-form rule.
var ErrInvalidTask = errors.New("invalid task")

// Task represents a single schedulable unit of marketing work.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	StartDate   Date     `json:"startDate" yaml:"start_date"`
	EndDate     Date     `json:"endDate" yaml:"end_date"`
	Category    string   `json:"category" yaml:"category"`
	Status      Status   `json:"status" yaml:"status"`
	Assignees   []string `json:"assignees" yaml:"assignees"`
	Progress    int      `json:"progress" yaml:"progress"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks the rules the edit form enforces. The layout engine never
// calls it; it tolerates all of these violations.
func (t *Task) Validate() error {
	var problems []string
	if strings.TrimSpace(t.Name) == "" {
		problems = append(problems, "name is required")
	}
	if t.Progress < 0 || t.Progress > MaxProgress {
		problems = append(problems, fmt.Sprintf("progress %d out of range 0-%d", t.Progress, MaxProgress))
	}
	if !t.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", t.Status))
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		problems = append(problems, "start and end dates are required")
	} else if t.EndDate.Before(t.StartDate) {
		problems = append(problems, "end date is before start date")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTask, strings.Join(problems, "; "))
	}
	return nil
}

// CategoryOrDefault returns the grouping key for the task.
func (t *Task) CategoryOrDefault() string {
	if t.Category == "" {
		return UncategorizedLabel
	}
	return t.Category
}

// AssigneeLabel joins assignees for display.
func (t *Task) AssigneeLabel() string {
	if len(t.Assignees) == 0 {
		return "Unassigned"
	}
	return strings.Join(t.Assignees, ", ")
}

// NewEmptyTask returns the default task used by the "add empty task" action.
func NewEmptyTask(today time.Time) Task {
	start := DateOf(today)
	return Task{
		Name:      DefaultName,
		StartDate: start,
		EndDate:   start.AddDays(1),
		Category:  DefaultCategory,
		Status:    DefaultStatus,
		Assignees: []string{},
		Progress:  0,
	}
}

// PlanDraft is a generator proposal with dates relative to the project start.
type PlanDraft struct {
	Name            string   `json:"name"`
	StartOffsetDays int      `json:"startOffsetDays"`
	DurationDays    int      `json:"durationDays"`
	Category        string   `json:"category"`
	Assignees       []string `json:"assignees"`
}
