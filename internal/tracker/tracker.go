// Package tracker owns the in-memory task list of a session and coordinates
// the store, the plan generator and the layout engine around it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/palette"
	"github.com/artyomia/marketingganttai/internal/planner"
	"github.com/artyomia/marketingganttai/internal/report"
	"github.com/artyomia/marketingganttai/internal/store"
	"github.com/artyomia/marketingganttai/internal/timeline"
)

// DefaultTickInterval is how often watchers re-evaluate now.
const DefaultTickInterval = time.Minute

// ErrNoGenerator is returned by ApplyPlan when no generator is configured.
var ErrNoGenerator = errors.New("plan generator is not configured")

// Recorder receives operational events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	StoreError(op string)
	PlanGenerated(success bool)
	ObserveLayout(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) StoreError(string)           {}
func (nopRecorder) PlanGenerated(bool)          {}
func (nopRecorder) ObserveLayout(time.Duration) {}

// Options tune a Tracker.
type Options struct {
	// SyncOnMutate writes Save and Delete through to the store. When false
	// edits live only in memory for the lifetime of the session.
	SyncOnMutate bool `mapstructure:"sync_on_mutate"`
	// StrictValidation makes Save reject tasks that fail model.Task.Validate.
	StrictValidation bool `mapstructure:"strict_validation"`
	// Assignees is the roster offered to the plan generator.
	Assignees []string `mapstructure:"assignees"`

	Layout   timeline.Config   `mapstructure:"-"`
	Styles   *palette.Resolver `mapstructure:"-"`
	Now      func() time.Time  `mapstructure:"-"`
	Recorder Recorder          `mapstructure:"-"`
}

// Tracker is the single writer of the task list.
type Tracker struct {
	mu    sync.RWMutex
	tasks []model.Task

	store store.Store
	gen   planner.Generator
	opts  Options
}

// New returns an empty tracker. gen may be nil when plan generation is not
// available.
func New(s store.Store, gen planner.Generator, opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Styles == nil {
		opts.Styles = palette.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Tracker{store: s, gen: gen, opts: opts, tasks: []model.Task{}}
}

// Load replaces the list with the store contents. On failure the list is
// left empty and the error is returned after logging; there is no retry.
func (t *Tracker) Load(ctx context.Context) error {
	tasks, err := t.store.List(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.opts.Recorder.StoreError("list")
		slog.Error("failed to load tasks", "error", err)
		t.tasks = []model.Task{}
		return err
	}
	t.tasks = tasks
	slog.Debug("tasks loaded", "count", len(tasks))
	return nil
}

// Tasks returns a copy of the current list.
func (t *Tracker) Tasks() []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Task(nil), t.tasks...)
}

// Get returns the task with id.
func (t *Tracker) Get(id string) (model.Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexOf(id); i >= 0 {
		return t.tasks[i], true
	}
	return model.Task{}, false
}

// AddEmpty creates the default new task through the store and appends it.
func (t *Tracker) AddEmpty(ctx context.Context) (model.Task, error) {
	return t.Add(ctx, store.DraftOf(model.NewEmptyTask(t.opts.Now())))
}

// Add creates draft through the store and appends the stored task. Nothing
// is appended when the store fails.
func (t *Tracker) Add(ctx context.Context, draft store.Draft) (model.Task, error) {
	created, err := t.store.Create(ctx, draft)
	if err != nil {
		t.opts.Recorder.StoreError("create")
		slog.Error("failed to add task", "error", err)
		return model.Task{}, err
	}

	t.mu.Lock()
	t.tasks = append(t.tasks, created)
	t.mu.Unlock()

	slog.Info("task added", "task_id", created.ID)
	return created, nil
}

// Save replaces the task with the same id.
func (t *Tracker) Save(ctx context.Context, task model.Task) (model.Task, error) {
	if t.opts.StrictValidation {
		if err := task.Validate(); err != nil {
			return model.Task{}, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(task.ID)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %s", store.ErrNotFound, task.ID)
	}
	if task.Assignees == nil {
		task.Assignees = []string{}
	}

	if t.opts.SyncOnMutate {
		saved, err := t.store.Update(ctx, task)
		if err != nil {
			t.opts.Recorder.StoreError("update")
			slog.Error("failed to save task", "task_id", task.ID, "error", err)
			return model.Task{}, err
		}
		task = saved
	}

	t.tasks[i] = task
	slog.Info("task saved", "task_id", task.ID, "synced", t.opts.SyncOnMutate)
	return task, nil
}

// Delete removes the task with id.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	if t.opts.SyncOnMutate {
		if err := t.store.Delete(ctx, id); err != nil {
			t.opts.Recorder.StoreError("delete")
			slog.Error("failed to delete task", "task_id", id, "error", err)
			return err
		}
	}

	t.tasks = append(t.tasks[:i:i], t.tasks[i+1:]...)
	slog.Info("task deleted", "task_id", id, "synced", t.opts.SyncOnMutate)
	return nil
}

// ApplyPlan generates a plan and replaces the whole list with it. On any
// failure the list is unchanged.
func (t *Tracker) ApplyPlan(ctx context.Context, req planner.Request) ([]model.Task, error) {
	if t.gen == nil {
		return nil, fmt.Errorf("%w: %w", planner.ErrGeneration, ErrNoGenerator)
	}

	tasks, err := planner.Generate(ctx, t.gen, req)
	t.opts.Recorder.PlanGenerated(err == nil)
	if err != nil {
		slog.Error("plan generation failed", "error", err)
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.opts.SyncOnMutate {
		if tasks, err = t.replaceStored(ctx, tasks); err != nil {
			return nil, err
		}
	}

	t.tasks = tasks
	slog.Info("plan applied", "tasks", len(tasks), "synced", t.opts.SyncOnMutate)
	return append([]model.Task(nil), tasks...), nil
}

// replaceStored creates the plan in the store and then removes the previous
// tasks. If a create fails the tasks created so far are removed again.
// Callers hold t.mu.
func (t *Tracker) replaceStored(ctx context.Context, plan []model.Task) ([]model.Task, error) {
	stored := make([]model.Task, 0, len(plan))
	for _, task := range plan {
		created, err := t.store.Create(ctx, store.DraftOf(task))
		if err != nil {
			t.opts.Recorder.StoreError("create")
			slog.Error("failed to store generated task", "error", err)
			for _, c := range stored {
				if derr := t.store.Delete(ctx, c.ID); derr != nil {
					slog.Warn("failed to roll back generated task", "task_id", c.ID, "error", derr)
				}
			}
			return nil, fmt.Errorf("%w: %w", planner.ErrGeneration, err)
		}
		stored = append(stored, created)
	}

	for _, old := range t.tasks {
		if err := t.store.Delete(ctx, old.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			t.opts.Recorder.StoreError("delete")
			slog.Warn("failed to remove replaced task", "task_id", old.ID, "error", err)
		}
	}
	return stored, nil
}

// Layout computes the timeline of the current list at now.
func (t *Tracker) Layout(now time.Time) timeline.Layout {
	tasks := t.Tasks()
	started := time.Now()
	layout := timeline.Compute(tasks, now, t.opts.Layout, t.opts.Styles)
	t.opts.Recorder.ObserveLayout(time.Since(started))
	return layout
}

// Stats summarises the current list.
func (t *Tracker) Stats() report.Summary {
	return report.Summarize(t.Tasks(), t.opts.Styles)
}

// Now returns the tracker clock.
func (t *Tracker) Now() time.Time {
	return t.opts.Now()
}

// Styles returns the category resolver.
func (t *Tracker) Styles() *palette.Resolver {
	return t.opts.Styles
}

// Tick calls fn with the current time immediately and then every interval
// until ctx is done. A non-positive interval uses DefaultTickInterval.
func (t *Tracker) Tick(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(t.opts.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(t.opts.Now())
		}
	}
}

// indexOf returns the position of id, or -1. Callers hold t.mu.
func (t *Tracker) indexOf(id string) int {
	for i, task := range t.tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}
