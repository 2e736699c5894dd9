package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask() Task {
	return Task{
		ID:        "t-1",
		Name:      "Launch email",
		StartDate: MustParseDate("2024-03-01"),
		EndDate:   MustParseDate("2024-03-04"),
		Category:  "Digital",
		Status:    StatusInProgress,
		Progress:  40,
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"To Do", StatusTodo, false},
		{"in progress", StatusInProgress, false},
		{" DONE ", StatusDone, false},
		{"Blocked", StatusBlocked, false},
		{"Cancelled", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	task := validTask()
	assert.NoError(t, task.Validate())

	tests := []struct {
		name   string
		mutate func(*Task)
		msg    string
	}{
		{"blank name", func(t *Task) { t.Name = "  " }, "name is required"},
		{"negative progress", func(t *Task) { t.Progress = -1 }, "progress -1 out of range"},
		{"progress over max", func(t *Task) { t.Progress = 101 }, "progress 101 out of range"},
		{"unknown status", func(t *Task) { t.Status = "Paused" }, `unknown status "Paused"`},
		{"missing date", func(t *Task) { t.EndDate = Date{} }, "dates are required"},
		{"inverted dates", func(t *Task) { t.EndDate = MustParseDate("2024-02-28") }, "end date is before start date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(&task)
			err := task.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTask))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidateSameDayTask(t *testing.T) {
	task := validTask()
	task.EndDate = task.StartDate
	assert.NoError(t, task.Validate())
}

func TestCategoryOrDefault(t *testing.T) {
	task := validTask()
	assert.Equal(t, "Digital", task.CategoryOrDefault())
	task.Category = ""
	assert.Equal(t, UncategorizedLabel, task.CategoryOrDefault())
}

func TestAssigneeLabel(t *testing.T) {
	task := validTask()
	assert.Equal(t, "Unassigned", task.AssigneeLabel())
	task.Assignees = []string{"Tuan", "Tu"}
	assert.Equal(t, "Tuan, Tu", task.AssigneeLabel())
}

func TestNewEmptyTask(t *testing.T) {
	now := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC)

	task := NewEmptyTask(now)

	assert.Equal(t, DefaultName, task.Name)
	assert.Equal(t, "2024-12-31", task.StartDate.String())
	assert.Equal(t, "2025-01-01", task.EndDate.String())
	assert.Equal(t, DefaultCategory, task.Category)
	assert.Equal(t, StatusTodo, task.Status)
	assert.NotNil(t, task.Assignees)
	assert.Empty(t, task.Assignees)
	assert.Zero(t, task.Progress)
	assert.Empty(t, task.ID)
}
