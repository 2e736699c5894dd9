// Package timeline turns a task list into the calendar grid and bar geometry
// drawn by the Gantt view. Everything here is a pure function of its inputs.
package timeline

import (
	"sort"
	"time"

	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/palette"
)

// Layout constants.
const (
	// DefaultDayWidth is the number of pixels drawn per calendar day.
	DefaultDayWidth = 50
	// DefaultLeadDays is shown before today, and before the earliest task
	// when that task starts earlier.
	DefaultLeadDays = 3
	// DefaultHorizonDays is the minimum span shown after today.
	DefaultHorizonDays = 45
	// DefaultTrailDays is shown after the latest task end.
	DefaultTrailDays = 15
	// LabelMaxRunes is the longest bar label before truncation.
	LabelMaxRunes = 20

	monthLabelLayout = "January 2006"
)

// Config holds the layout constants.
type Config struct {
	DayWidth    float64 `mapstructure:"day_width" json:"dayWidth"`
	LeadDays    int     `mapstructure:"lead_days" json:"leadDays"`
	HorizonDays int     `mapstructure:"horizon_days" json:"horizonDays"`
	TrailDays   int     `mapstructure:"trail_days" json:"trailDays"`
}

// DefaultConfig returns the standard layout constants.
func DefaultConfig() Config {
	return Config{
		DayWidth:    DefaultDayWidth,
		LeadDays:    DefaultLeadDays,
		HorizonDays: DefaultHorizonDays,
		TrailDays:   DefaultTrailDays,
	}
}

// withDefaults fills unset fields with the standard constants. The zero
// Config means DefaultConfig. Otherwise a zero day count is honoured and
// only negative ones are replaced.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c == (Config{}) {
		return d
	}
	if c.DayWidth <= 0 {
		c.DayWidth = d.DayWidth
	}
	if c.LeadDays < 0 {
		c.LeadDays = d.LeadDays
	}
	if c.HorizonDays < 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.TrailDays < 0 {
		c.TrailDays = d.TrailDays
	}
	return c
}

// Window is the visible date span.
type Window struct {
	Start     model.Date `json:"startDate" yaml:"startDate"`
	End       model.Date `json:"endDate" yaml:"endDate"`
	TotalDays int        `json:"totalDays" yaml:"totalDays"`
}

// DayCell is one column of the day header.
type DayCell struct {
	Date    model.Date `json:"date" yaml:"date"`
	Weekday string     `json:"weekday" yaml:"weekday"`
	Weekend bool       `json:"isWeekend" yaml:"isWeekend"`
	Today   bool       `json:"isToday" yaml:"isToday"`
}

// MonthBand is a run of consecutive days sharing a month label.
type MonthBand struct {
	Label string  `json:"label" yaml:"label"`
	Days  int     `json:"days" yaml:"days"`
	Width float64 `json:"width" yaml:"width"`
}

// Geometry is the horizontal placement of a bar in layout units.
type Geometry struct {
	Left  float64 `json:"left" yaml:"left"`
	Width float64 `json:"width" yaml:"width"`
}

// Bar is a task placed on the canvas.
type Bar struct {
	Task      model.Task `json:"task" yaml:"task"`
	Geometry  `yaml:",inline"`
	Label     string `json:"label" yaml:"label"`
	Assignees string `json:"assignees" yaml:"assignees"`
	Done      bool   `json:"done" yaml:"done"`
	Bucket    int    `json:"bucket" yaml:"bucket"`
}

// Group is the bars of one category.
type Group struct {
	Category string `json:"category" yaml:"category"`
	Bucket   int    `json:"bucket" yaml:"bucket"`
	Bars     []Bar  `json:"bars" yaml:"bars"`
}

// Layout is everything the rendering layer needs for one frame.
type Layout struct {
	Window   Window      `json:"window" yaml:"window"`
	DayWidth float64     `json:"dayWidth" yaml:"dayWidth"`
	Width    float64     `json:"width" yaml:"width"`
	Days     []DayCell   `json:"days" yaml:"days"`
	Months   []MonthBand `json:"months" yaml:"months"`
	// NowOffset is nil when now falls outside the window.
	NowOffset *float64 `json:"nowOffset" yaml:"nowOffset"`
	Groups    []Group  `json:"groups" yaml:"groups"`
}

// Compute lays out tasks as seen at now. Dates are read as calendar days in
// now's location. It never fails: an empty list yields the default window and
// inverted ranges render as one-day bars.
func Compute(tasks []model.Task, now time.Time, cfg Config, styles *palette.Resolver) Layout {
	cfg = cfg.withDefaults()
	if styles == nil {
		styles = palette.Default()
	}

	window := ComputeWindow(tasks, now, cfg)
	days := Days(window, now)

	layout := Layout{
		Window:    window,
		DayWidth:  cfg.DayWidth,
		Width:     float64(len(days)) * cfg.DayWidth,
		Days:      days,
		Months:    Months(days, cfg.DayWidth),
		NowOffset: NowOffset(window, now, cfg.DayWidth),
		Groups:    []Group{},
	}

	for _, g := range GroupByCategory(tasks) {
		group := Group{
			Category: g.Category,
			Bucket:   styles.Bucket(g.Category),
			Bars:     make([]Bar, 0, len(g.Tasks)),
		}
		for _, task := range g.Tasks {
			group.Bars = append(group.Bars, Bar{
				Task:      task,
				Geometry:  TaskGeometry(task, window, cfg.DayWidth),
				Label:     TruncateLabel(task.Name),
				Assignees: task.AssigneeLabel(),
				Done:      task.Status == model.StatusDone,
				Bucket:    styles.Bucket(task.Category),
			})
		}
		layout.Groups = append(layout.Groups, group)
	}

	return layout
}

// ComputeWindow derives the visible span from the tasks and today. Missing
// (zero) dates do not widen the window.
func ComputeWindow(tasks []model.Task, now time.Time, cfg Config) Window {
	cfg = cfg.withDefaults()
	today := model.DateOf(now)

	minDate := today.AddDays(-cfg.LeadDays)
	maxDate := today.AddDays(cfg.HorizonDays)

	var taskMin, taskMax model.Date
	for _, t := range tasks {
		if !t.StartDate.IsZero() && (taskMin.IsZero() || t.StartDate.Before(taskMin)) {
			taskMin = t.StartDate
		}
		if !t.EndDate.IsZero() && (taskMax.IsZero() || t.EndDate.After(taskMax)) {
			taskMax = t.EndDate
		}
	}

	if !taskMin.IsZero() && taskMin.Before(minDate) {
		if lead := taskMin.AddDays(-cfg.LeadDays); lead.Before(minDate) {
			minDate = lead
		}
	}
	if !taskMax.IsZero() {
		if trail := taskMax.AddDays(cfg.TrailDays); trail.After(maxDate) {
			maxDate = trail
		}
	}

	return Window{
		Start:     minDate,
		End:       maxDate,
		TotalDays: minDate.DaysUntil(maxDate),
	}
}

// Days returns TotalDays+1 header cells starting at the window start.
func Days(w Window, now time.Time) []DayCell {
	today := model.DateOf(now)
	cells := make([]DayCell, 0, w.TotalDays+1)
	for i := 0; i <= w.TotalDays; i++ {
		d := w.Start.AddDays(i)
		wd := d.Weekday()
		cells = append(cells, DayCell{
			Date:    d,
			Weekday: wd.String()[:3],
			Weekend: wd == time.Saturday || wd == time.Sunday,
			Today:   d.Equal(today.Time),
		})
	}
	return cells
}

// Months groups consecutive day cells by month and year, preserving order.
func Months(days []DayCell, dayWidth float64) []MonthBand {
	var bands []MonthBand
	for _, cell := range days {
		label := cell.Date.Format(monthLabelLayout)
		if n := len(bands); n > 0 && bands[n-1].Label == label {
			bands[n-1].Days++
			continue
		}
		bands = append(bands, MonthBand{Label: label, Days: 1})
	}
	for i := range bands {
		bands[i].Width = float64(bands[i].Days) * dayWidth
	}
	return bands
}

// NowOffset returns the marker position for now, or nil when now is outside
// the window.
func NowOffset(w Window, now time.Time, dayWidth float64) *float64 {
	today := model.DateOf(now)
	midnight := today.In(now.Location())
	fraction := float64(now.Sub(midnight)) / float64(midnight.AddDate(0, 0, 1).Sub(midnight))

	diffDays := float64(w.Start.DaysUntil(today)) + fraction
	if diffDays < 0 || diffDays > float64(w.TotalDays) {
		return nil
	}
	offset := diffDays * dayWidth
	return &offset
}

// TaskGeometry places task relative to the window start. Bars are at least
// one day wide. A task without a start date sits at the window start and one
// without an end date is one day long.
func TaskGeometry(task model.Task, w Window, dayWidth float64) Geometry {
	start := task.StartDate
	if start.IsZero() {
		start = w.Start
	}
	offsetDays := w.Start.DaysUntil(start)
	durationDays := 1
	if !task.EndDate.IsZero() {
		durationDays = start.DaysUntil(task.EndDate)
	}
	if durationDays <= 0 {
		durationDays = 1
	}
	width := float64(durationDays) * dayWidth
	if width < dayWidth {
		width = dayWidth
	}
	return Geometry{
		Left:  float64(offsetDays) * dayWidth,
		Width: width,
	}
}

// CategoryTasks is one bucket of the category partition.
type CategoryTasks struct {
	Category string
	Tasks    []model.Task
}

// GroupByCategory partitions tasks by category, with empty categories under
// model.UncategorizedLabel. Groups are sorted by name; tasks keep their input
// order within a group.
func GroupByCategory(tasks []model.Task) []CategoryTasks {
	index := make(map[string]int)
	var groups []CategoryTasks
	for _, task := range tasks {
		key := task.CategoryOrDefault()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, CategoryTasks{Category: key})
		}
		groups[i].Tasks = append(groups[i].Tasks, task)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Category < groups[j].Category
	})
	return groups
}

// TruncateLabel shortens names longer than LabelMaxRunes.
func TruncateLabel(name string) string {
	runes := []rune(name)
	if len(runes) <= LabelMaxRunes {
		return name
	}
	return string(runes[:LabelMaxRunes]) + "..."
}
