package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artyomia/marketingganttai/internal/clipboard"
	"github.com/artyomia/marketingganttai/internal/config"
	"github.com/artyomia/marketingganttai/internal/logging"
	"github.com/artyomia/marketingganttai/internal/metrics"
	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/planner"
	"github.com/artyomia/marketingganttai/internal/report"
	"github.com/artyomia/marketingganttai/internal/server"
	"github.com/artyomia/marketingganttai/internal/store"
	"github.com/artyomia/marketingganttai/internal/tracker"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// --- Cobra Command Definitions ---

var (
	// Used for flags.
	configPath  string
	storeDriver string
	storePath   string
	logLevel    string
	logFormat   string

	outputFormat string

	taskName        string
	taskCategory    string
	taskStart       string
	taskEnd         string
	taskStatus      string
	taskProgress    int
	taskAssignees   string
	taskDescription string

	nowFlag       string
	watch         bool
	watchInterval time.Duration
	noColor       bool

	copyStats bool

	planDescription string
	planStart       string
	dryRun          bool

	serveAddr string

	// cfg is loaded once per invocation by PersistentPreRunE.
	cfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "marketingganttai",
		Short: "Plan and track marketing tasks on a Gantt timeline.",
		Long: `MarketingGanttAI keeps a list of marketing tasks, lays them out on a day-by-day
Gantt timeline, summarises progress and can draft a whole project plan from a
one-line description using Gemini.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all tasks.",
		Args:  cobra.NoArgs,
		RunE:  runListCommand,
	}

	showCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCommand,
	}

	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a task.",
		Long:  `Adds a task. Without flags this adds the default "New Task" starting today and ending tomorrow, ready for editing.`,
		Args:  cobra.NoArgs,
		RunE:  runAddCommand,
	}

	editCmd = &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task.",
		Long:  `Changes only the fields whose flags are given. --assignees takes a comma separated list; pass an empty string to clear it.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runEditCommand,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteCommand,
	}

	timelineCmd = &cobra.Command{
		Use:   "timeline",
		Short: "Draw the Gantt timeline.",
		Long:  `Draws the Gantt timeline grouped by category, one column per day. Use --watch to redraw as the day advances.`,
		Args:  cobra.NoArgs,
		RunE:  runTimelineCommand,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show the progress dashboard.",
		Args:  cobra.NoArgs,
		RunE:  runStatsCommand,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate a project plan with Gemini.",
		Long:  `Asks Gemini for a task breakdown of the described project and replaces the whole task list with it. Use --dry-run to preview without saving.`,
		Args:  cobra.NoArgs,
		RunE:  runGenerateCommand,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and Prometheus metrics.",
		Args:  cobra.NoArgs,
		RunE:  runServeCommand,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.marketingganttai/config.yaml).")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Task store driver: yaml, sqlite or rest.")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "Task file for the yaml and sqlite drivers.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or text.")

	for _, c := range []*cobra.Command{listCmd, showCmd, addCmd, editCmd, timelineCmd, statsCmd, generateCmd} {
		c.Flags().StringVar(&outputFormat, "format", formatText, "Output format: text, json or yaml.")
	}

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&taskName, "name", "", "Task name.")
		c.Flags().StringVar(&taskCategory, "category", "", "Task category.")
		c.Flags().StringVar(&taskStart, "start", "", "Start date (YYYY-MM-DD).")
		c.Flags().StringVar(&taskEnd, "end", "", "End date (YYYY-MM-DD).")
		c.Flags().StringVar(&taskStatus, "status", "", "Status: To Do, In Progress, Done or Blocked.")
		c.Flags().IntVar(&taskProgress, "progress", 0, "Progress percentage (0-100).")
		c.Flags().StringVar(&taskAssignees, "assignees", "", "Comma separated assignees.")
		c.Flags().StringVar(&taskDescription, "description", "", "Task description.")
	}

	timelineCmd.Flags().StringVar(&nowFlag, "now", "", "Draw as of this time (RFC 3339 or YYYY-MM-DD) instead of the clock.")
	timelineCmd.Flags().BoolVar(&watch, "watch", false, "Redraw every --interval until interrupted.")
	timelineCmd.Flags().DurationVar(&watchInterval, "interval", tracker.DefaultTickInterval, "Redraw interval for --watch.")
	timelineCmd.Flags().BoolVar(&noColor, "no-color", false, "Draw bars without category colours.")

	statsCmd.Flags().BoolVar(&copyStats, "copy", false, "Also copy the text summary to the clipboard.")

	generateCmd.Flags().StringVar(&planDescription, "description", "", "Project description.")
	generateCmd.Flags().StringVar(&planStart, "start", "", "Project start date (YYYY-MM-DD, default today).")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the generated plan without replacing the task list.")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr).")

	rootCmd.AddCommand(listCmd, showCmd, addCmd, editCmd, deleteCmd, timelineCmd, statsCmd, generateCmd, serveCmd)
}

// --- Main Application Entry Point ---

func main() {
	// Setup structured JSON logger until the configured one replaces it.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	Execute()
}

// setup loads configuration, applies flag overrides and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if storeDriver != "" {
		loaded.Store.Driver = storeDriver
	}
	if storePath != "" {
		loaded.Store.Path = storePath
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, loaded.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	switch outputFormat {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("invalid --format %q: must be one of text, json, yaml", outputFormat)
	}

	cfg = loaded
	return nil
}

// session opens the configured store and loads the task list. The CLI is
// the store's only writer, so every edit is written through. With
// keepEmpty a failed load is logged and the session starts with no tasks.
func session(ctx context.Context, gen planner.Generator, rec tracker.Recorder, keepEmpty bool) (*tracker.Tracker, func(), error) {
	s, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open task store: %w", err)
	}

	opts := cfg.Tracker
	opts.SyncOnMutate = true
	opts.Layout = cfg.Layout
	opts.Styles = cfg.Resolver()
	opts.Recorder = rec

	t := tracker.New(s, gen, opts)
	if err := t.Load(ctx); err != nil {
		if !keepEmpty {
			s.Close()
			return nil, nil, fmt.Errorf("failed to load tasks: %w", err)
		}
		slog.Error("failed to load tasks, starting with an empty list", "driver", cfg.Store.Driver, "error", err)
	}
	return t, func() {
		if err := s.Close(); err != nil {
			slog.Warn("failed to close task store", "error", err)
		}
	}, nil
}

// generator returns the Gemini client, or nil when no key is configured.
func generator() (planner.Generator, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, nil
	}
	return planner.NewGemini(cfg.Gemini, cfg.Tracker.Assignees)
}

// --- Command Execution Logic ---

func runListCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	tasks := t.Tasks()
	if outputFormat != formatText {
		return writeStructured(cmd.OutOrStdout(), tasks)
	}
	report.PrintTasks(cmd.OutOrStdout(), tasks)
	return nil
}

func runShowCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	task, ok := t.Get(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
	}
	return printTask(cmd.OutOrStdout(), task)
}

func runAddCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	task := model.NewEmptyTask(t.Now())
	if err := applyTaskFlags(cmd, &task); err != nil {
		return err
	}
	if cfg.Tracker.StrictValidation {
		if err := task.Validate(); err != nil {
			return err
		}
	}

	created, err := t.Add(cmd.Context(), store.DraftOf(task))
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	return printTask(cmd.OutOrStdout(), created)
}

func runEditCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	task, ok := t.Get(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
	}
	if err := applyTaskFlags(cmd, &task); err != nil {
		return err
	}

	saved, err := t.Save(cmd.Context(), task)
	if err != nil {
		return err
	}
	return printTask(cmd.OutOrStdout(), saved)
}

func runDeleteCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := t.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
	return nil
}

func runTimelineCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	draw := func(now time.Time) {
		layout := t.Layout(now)
		if outputFormat != formatText {
			if err := writeStructured(out, layout); err != nil {
				slog.Error("failed to encode timeline", "error", err)
			}
			return
		}
		report.PrintTimeline(out, layout, report.TimelineOptions{Color: !noColor, Styles: t.Styles()})
	}

	if nowFlag != "" {
		now, err := parseNow(nowFlag)
		if err != nil {
			return err
		}
		draw(now)
		return nil
	}
	if !watch {
		draw(t.Now())
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	t.Tick(ctx, watchInterval, func(now time.Time) {
		if outputFormat == formatText {
			// Clear the screen between frames.
			fmt.Fprint(out, "\033[H\033[2J")
		}
		draw(now)
	})
	return nil
}

func runStatsCommand(cmd *cobra.Command, args []string) error {
	t, closeStore, err := session(cmd.Context(), nil, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	summary := t.Stats()
	out := cmd.OutOrStdout()
	if outputFormat != formatText {
		if err := writeStructured(out, summary); err != nil {
			return err
		}
	} else {
		report.PrintStats(out, summary)
	}

	if copyStats {
		var text bytes.Buffer
		report.PrintStats(&text, summary)
		if err := clipboard.Copy(text.String()); err != nil {
			slog.Warn("could not copy stats to clipboard", "error", err)
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Stats copied to clipboard.")
	}
	return nil
}

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(planDescription) == "" {
		return fmt.Errorf("--description is required")
	}

	ctx := cmd.Context()
	gen, err := generator()
	if err != nil {
		return err
	}
	if gen == nil {
		return fmt.Errorf("%w: set gemini.api_key or MKT_GEMINI_API_KEY", tracker.ErrNoGenerator)
	}

	t, closeStore, err := session(ctx, gen, nil, false)
	if err != nil {
		return err
	}
	defer closeStore()

	start := model.DateOf(t.Now())
	if planStart != "" {
		if start, err = model.ParseDate(planStart); err != nil {
			return fmt.Errorf("invalid --start, use YYYY-MM-DD: %w", err)
		}
	}
	req := planner.Request{Description: planDescription, StartDate: start}

	var tasks []model.Task
	if dryRun {
		tasks, err = planner.Generate(ctx, gen, req)
	} else {
		tasks, err = t.ApplyPlan(ctx, req)
	}
	if err != nil {
		slog.Error("plan generation failed", "error", err)
		return planner.ErrGeneration
	}

	out := cmd.OutOrStdout()
	if outputFormat != formatText {
		return writeStructured(out, tasks)
	}
	report.PrintTasks(out, tasks)
	if dryRun {
		fmt.Fprintln(out, "Dry run: the task list was not changed.")
	}
	return nil
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	gen, err := generator()
	if err != nil {
		return err
	}
	if gen == nil {
		slog.Warn("gemini api key not configured, plan generation disabled")
	}

	t, closeStore, err := session(ctx, gen, m, true)
	if err != nil {
		return err
	}
	defer closeStore()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return server.New(t, m, registry).Run(ctx, addr)
}

// --- Helper Functions ---

// applyTaskFlags copies every flag the user set onto task.
func applyTaskFlags(cmd *cobra.Command, task *model.Task) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		task.Name = taskName
	}
	if flags.Changed("category") {
		task.Category = taskCategory
	}
	if flags.Changed("start") {
		d, err := model.ParseDate(taskStart)
		if err != nil {
			return fmt.Errorf("invalid --start, use YYYY-MM-DD: %w", err)
		}
		task.StartDate = d
	}
	if flags.Changed("end") {
		d, err := model.ParseDate(taskEnd)
		if err != nil {
			return fmt.Errorf("invalid --end, use YYYY-MM-DD: %w", err)
		}
		task.EndDate = d
	}
	if flags.Changed("status") {
		s, err := model.ParseStatus(taskStatus)
		if err != nil {
			return err
		}
		task.Status = s
	}
	if flags.Changed("progress") {
		task.Progress = taskProgress
	}
	if flags.Changed("assignees") {
		task.Assignees = splitList(taskAssignees)
	}
	if flags.Changed("description") {
		task.Description = taskDescription
	}
	return nil
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseNow accepts an RFC 3339 timestamp or a bare date at local midnight.
func parseNow(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: use RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func printTask(out io.Writer, task model.Task) error {
	if outputFormat != formatText {
		return writeStructured(out, task)
	}
	report.PrintTask(out, task)
	return nil
}

// writeStructured encodes v in the json or yaml output format.
func writeStructured(out io.Writer, v any) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}
