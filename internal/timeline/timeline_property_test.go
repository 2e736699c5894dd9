package timeline

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/artyomia/marketingganttai/internal/model"
)

var epoch = model.MustParseDate("2024-01-01")

func genTasks() *rapid.Generator[[]model.Task] {
	return rapid.Custom(func(t *rapid.T) []model.Task {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		tasks := make([]model.Task, 0, n)
		for i := 0; i < n; i++ {
			start := epoch.AddDays(rapid.IntRange(-400, 400).Draw(t, "start"))
			end := start.AddDays(rapid.IntRange(-5, 90).Draw(t, "duration"))
			tasks = append(tasks, model.Task{
				Name:      "t",
				StartDate: start,
				EndDate:   end,
				Category:  rapid.SampledFrom([]string{"", "Digital", "Sale", "Event", "Ads"}).Draw(t, "category"),
			})
		}
		return tasks
	})
}

func genNow() *rapid.Generator[time.Time] {
	return rapid.Custom(func(t *rapid.T) time.Time {
		day := epoch.AddDays(rapid.IntRange(-200, 200).Draw(t, "day"))
		minutes := rapid.IntRange(0, 24*60-1).Draw(t, "minutes")
		return day.In(time.UTC).Add(time.Duration(minutes) * time.Minute)
	})
}

// TestWindow_CoversDefaultSpan checks the window never shrinks below
// [today-3, today+45].
func TestWindow_CoversDefaultSpan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tasks := genTasks().Draw(t, "tasks")
		now := genNow().Draw(t, "now")
		today := model.DateOf(now)

		w := ComputeWindow(tasks, now, DefaultConfig())

		if w.Start.After(today.AddDays(-DefaultLeadDays)) {
			t.Fatalf("window start %s after today-3", w.Start)
		}
		if w.End.Before(today.AddDays(DefaultHorizonDays)) {
			t.Fatalf("window end %s before today+45", w.End)
		}
		if w.TotalDays < DefaultLeadDays+DefaultHorizonDays {
			t.Fatalf("window only %d days", w.TotalDays)
		}
		if w.TotalDays != w.Start.DaysUntil(w.End) {
			t.Fatalf("total days %d != span %d", w.TotalDays, w.Start.DaysUntil(w.End))
		}
	})
}

// TestWindow_LeadInBeforeEarlyTasks checks tasks starting before the default
// window always get three days of lead-in.
func TestWindow_LeadInBeforeEarlyTasks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tasks := genTasks().Draw(t, "tasks")
		now := genNow().Draw(t, "now")
		if len(tasks) == 0 {
			return
		}
		defaultStart := model.DateOf(now).AddDays(-DefaultLeadDays)

		w := ComputeWindow(tasks, now, DefaultConfig())

		for _, task := range tasks {
			if task.StartDate.Before(defaultStart) && w.Start.After(task.StartDate.AddDays(-DefaultLeadDays)) {
				t.Fatalf("task starting %s lacks lead-in, window starts %s", task.StartDate, w.Start)
			}
			if w.End.Before(task.EndDate.AddDays(DefaultTrailDays)) {
				t.Fatalf("task ending %s lacks trailing days, window ends %s", task.EndDate, w.End)
			}
		}
	})
}

// TestCompute_Invariants checks the derived sequences agree with the window.
func TestCompute_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tasks := genTasks().Draw(t, "tasks")
		now := genNow().Draw(t, "now")

		layout := Compute(tasks, now, DefaultConfig(), nil)

		if len(layout.Days) != layout.Window.TotalDays+1 {
			t.Fatalf("%d day cells for %d total days", len(layout.Days), layout.Window.TotalDays)
		}
		monthDays := 0
		for _, m := range layout.Months {
			monthDays += m.Days
		}
		if monthDays != len(layout.Days) {
			t.Fatalf("month bands cover %d days, want %d", monthDays, len(layout.Days))
		}
		if layout.NowOffset == nil {
			t.Fatalf("now marker missing for now inside the window")
		}
		bars := 0
		for i, g := range layout.Groups {
			if i > 0 && layout.Groups[i-1].Category >= g.Category {
				t.Fatalf("groups out of order: %q then %q", layout.Groups[i-1].Category, g.Category)
			}
			for _, b := range g.Bars {
				if b.Width < layout.DayWidth {
					t.Fatalf("bar narrower than one day: %v", b.Width)
				}
				bars++
			}
		}
		if bars != len(tasks) {
			t.Fatalf("%d bars for %d tasks", bars, len(tasks))
		}
	})
}
