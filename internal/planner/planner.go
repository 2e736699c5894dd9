// Package planner turns a free-text campaign description into a dated task
// list using a generative model.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/artyomia/marketingganttai/internal/model"
)

// GenerationFailedMessage is the only failure text shown to users.
const GenerationFailedMessage = "Failed to generate project plan. Please try again."

var (
	// ErrGeneration wraps every generator failure.
	ErrGeneration = errors.New(GenerationFailedMessage)
	// ErrMalformedResponse marks output that does not match the draft schema.
	ErrMalformedResponse = errors.New("malformed plan response")
)

// Generator proposes a plan for a campaign starting on start.
type Generator interface {
	Generate(ctx context.Context, description string, start model.Date) ([]model.PlanDraft, error)
}

// Request is the input of a plan generation.
type Request struct {
	Description string     `json:"description" binding:"required"`
	StartDate   model.Date `json:"startDate"`
}

// Generate runs gen and converts its drafts into tasks. Any failure is
// returned wrapped in ErrGeneration and no tasks are produced.
func Generate(ctx context.Context, gen Generator, req Request) ([]model.Task, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: empty description", ErrGeneration)
	}
	if req.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: missing start date", ErrGeneration)
	}
	drafts, err := gen.Generate(ctx, req.Description, req.StartDate)
	if err != nil {
		if errors.Is(err, ErrGeneration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return ToTasks(drafts, req.StartDate), nil
}

// ToTasks dates each draft relative to start. Tasks get fresh ids, status
// To Do and zero progress.
func ToTasks(drafts []model.PlanDraft, start model.Date) []model.Task {
	tasks := make([]model.Task, 0, len(drafts))
	for _, d := range drafts {
		taskStart := start.AddDays(d.StartOffsetDays)
		assignees := d.Assignees
		if assignees == nil {
			assignees = []string{}
		}
		tasks = append(tasks, model.Task{
			ID:          uuid.NewString(),
			Name:        d.Name,
			StartDate:   taskStart,
			EndDate:     taskStart.AddDays(d.DurationDays),
			Category:    d.Category,
			Status:      model.StatusTodo,
			Assignees:   assignees,
			Progress:    0,
			Description: fmt.Sprintf(model.GeneratedDescription, d.Category),
		})
	}
	return tasks
}

// rawDraft mirrors PlanDraft with pointers so missing fields can be told
// apart from zero values.
type rawDraft struct {
	Name            *string   `json:"name"`
	StartOffsetDays *int      `json:"startOffsetDays"`
	DurationDays    *int      `json:"durationDays"`
	Category        *string   `json:"category"`
	Assignees       *[]string `json:"assignees"`
}

// ParseDrafts decodes a model response. Every element must carry every
// field with the right type and a non-empty name; otherwise the whole
// response is rejected.
func ParseDrafts(data []byte) ([]model.PlanDraft, error) {
	var raw []rawDraft
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no tasks in plan", ErrMalformedResponse)
	}

	drafts := make([]model.PlanDraft, 0, len(raw))
	for i, r := range raw {
		var missing []string
		if r.Name == nil {
			missing = append(missing, "name")
		}
		if r.StartOffsetDays == nil {
			missing = append(missing, "startOffsetDays")
		}
		if r.DurationDays == nil {
			missing = append(missing, "durationDays")
		}
		if r.Category == nil {
			missing = append(missing, "category")
		}
		if r.Assignees == nil {
			missing = append(missing, "assignees")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: task %d missing %s", ErrMalformedResponse, i, strings.Join(missing, ", "))
		}
		if strings.TrimSpace(*r.Name) == "" {
			return nil, fmt.Errorf("%w: task %d has an empty name", ErrMalformedResponse, i)
		}
		drafts = append(drafts, model.PlanDraft{
			Name:            *r.Name,
			StartOffsetDays: *r.StartOffsetDays,
			DurationDays:    *r.DurationDays,
			Category:        *r.Category,
			Assignees:       *r.Assignees,
		})
	}
	return drafts, nil
}

// Prompt builds the instruction sent to the model.
func Prompt(description string, start model.Date, categories, roster []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed marketing project plan for: %q.\n", description)
	fmt.Fprintf(&b, "The project starts on %s.\n", start)
	b.WriteString("Generate 5-10 specific tasks that are realistic for a marketing campaign.\n")
	b.WriteString("Ensure the dates are sequential and logical (e.g., Planning comes before Execution).\n")
	fmt.Fprintf(&b, "Classify tasks into categories like: %s. You can also create new specific categories if needed.\n",
		strings.Join(categories, ", "))
	if line := rosterLine(roster); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("Return the response in strict JSON format.")
	return b.String()
}

func rosterLine(roster []string) string {
	quoted := make([]string, 0, len(roster))
	for _, name := range roster {
		quoted = append(quoted, "'"+name+"'")
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Assign tasks to %s.", quoted[0])
	case 2:
		return fmt.Sprintf("Assign tasks to %s or %s or both.", quoted[0], quoted[1])
	default:
		return fmt.Sprintf("Assign each task to one or more of %s.", strings.Join(quoted, ", "))
	}
}
