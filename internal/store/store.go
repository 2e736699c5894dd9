// Package store persists task records. It is the boundary between the
// in-memory task list and whatever backend holds the table of tasks.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artyomia/marketingganttai/internal/model"
)

// ErrNotFound is returned when an id does not match any stored record.
var ErrNotFound = errors.New("task not found")

// Store is a task table. List returns records in creation order.
type Store interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, draft Draft) (model.Task, error)
	Update(ctx context.Context, task model.Task) (model.Task, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Supported driver names.
const (
	DriverYAML   = "yaml"
	DriverSQLite = "sqlite"
	DriverREST   = "rest"
)

// DefaultTable is the table name used by the SQL and REST backends.
const DefaultTable = "tasks"

// Config selects and configures a backend.
type Config struct {
	Driver string `mapstructure:"driver"`
	// Path is the file used by the yaml and sqlite drivers.
	Path string `mapstructure:"path"`
	// URL, APIKey and Table configure the rest driver.
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Table  string `mapstructure:"table"`
}

// Open returns the backend named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverYAML, "":
		return NewYAMLStore(cfg.Path)
	case DriverSQLite:
		return NewSQLiteStore(cfg.Path)
	case DriverREST:
		return NewRESTStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q: must be one of yaml, sqlite, rest", cfg.Driver)
	}
}

// Draft is a task that has not been assigned an id yet.
type Draft struct {
	Name        string
	Category    string
	StartDate   model.Date
	EndDate     model.Date
	Status      model.Status
	Assignees   []string
	Progress    int
	Description string
}

// DraftOf copies the editable fields of task.
func DraftOf(task model.Task) Draft {
	return Draft{
		Name:        task.Name,
		Category:    task.Category,
		StartDate:   task.StartDate,
		EndDate:     task.EndDate,
		Status:      task.Status,
		Assignees:   task.Assignees,
		Progress:    task.Progress,
		Description: task.Description,
	}
}

// Record is the persisted row shape. Field names follow the table columns.
type Record struct {
	ID          string     `json:"id,omitempty" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Category    string     `json:"category" yaml:"category,omitempty"`
	Owner       string     `json:"owner" yaml:"owner,omitempty"`
	StartDate   model.Date `json:"start_date" yaml:"start_date"`
	EndDate     model.Date `json:"end_date" yaml:"end_date"`
	Progress    int        `json:"progress" yaml:"progress"`
	Status      string     `json:"status" yaml:"status,omitempty"`
	Assignees   []string   `json:"assignees" yaml:"assignees"`
	Description string     `json:"description" yaml:"description,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// NewRecord maps a draft to a row ready for insertion.
func NewRecord(d Draft) Record {
	assignees := d.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return Record{
		Title:       d.Name,
		Category:    d.Category,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Progress:    d.Progress,
		Status:      string(d.Status),
		Assignees:   assignees,
		Description: d.Description,
	}
}

// RecordOf maps a task back to a row, keeping its id.
func RecordOf(task model.Task) Record {
	r := NewRecord(DraftOf(task))
	r.ID = task.ID
	return r
}

// Task maps a row to the in-memory shape, filling defaults for columns the
// backend left empty.
func (r Record) Task() model.Task {
	task := model.Task{
		ID:          r.ID,
		Name:        r.Title,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Category:    r.Category,
		Status:      model.Status(r.Status),
		Assignees:   r.Assignees,
		Progress:    r.Progress,
		Description: r.Description,
	}
	if task.Name == "" {
		task.Name = model.DefaultName
	}
	if task.Category == "" {
		task.Category = model.DefaultCategory
	}
	if task.Status == "" {
		task.Status = model.DefaultStatus
	}
	if task.Assignees == nil {
		task.Assignees = []string{}
	}
	return task
}

// Tasks maps rows in order.
func Tasks(records []Record) []model.Task {
	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.Task())
	}
	return tasks
}
