package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/planr/internal/ai"
	"github.com/christopherklint97/planr/internal/config"
	"github.com/christopherklint97/planr/internal/planclient"
	"github.com/christopherklint97/planr/internal/scheduler"
	"github.com/christopherklint97/planr/internal/store"
	"github.com/christopherklint97/planr/internal/supabase"
)

var rootCmd = &cobra.Command{
	Use:          "planr",
	Short:        "AI daily planning assistant",
	Long:         "planr captures your tasks, asks a language model to arrange them into a schedule for the rest of the day, and serves the planning API.",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the planning API server",
	RunE:  runServe,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan the day from your task inbox",
	RunE:  runPlan,
}

var addCmd = &cobra.Command{
	Use:   "add <task>",
	Short: "Add a task to the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks in the inbox",
	RunE:  runTasks,
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previously generated plans",
	RunE:  runHistory,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the planning API and Supabase connectivity",
	RunE:  runHealth,
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Plan automatically every work day at schedule.plan_at",
	RunE:  runDaily,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daily scheduler",
	RunE:  runStop,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all tasks to a JSON backup (\"-\" for stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge tasks from a JSON backup into the inbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	planCmd.Flags().String("date", "", `Day to plan, in natural language ("tomorrow", "next monday")`)
	planCmd.Flags().String("context", "", "Additional context for the planner")
	planCmd.Flags().String("prompt", "", "Custom system prompt")
	planCmd.Flags().String("calendar", "", "ICS URL or file whose events are added as context (defaults to calendar.source)")
	planCmd.Flags().String("ics", "", "Write the plan as an .ics file to this path")
	planCmd.Flags().Bool("sync", false, "Include Supabase actionable items and store the plan in Supabase")
	planCmd.Flags().BoolP("interactive", "i", false, "Capture tasks and review the plan in a terminal UI")

	tasksCmd.Flags().Bool("all", false, "Include completed tasks")
	historyCmd.Flags().Int("limit", 10, "Number of plans to show")
	dailyCmd.Flags().Bool("now", false, "Plan once immediately and exit")
	importCmd.Flags().BoolP("yes", "y", false, "Import without asking for confirmation")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger picks JSON output in production and text otherwise.
func newLogger(cfg *config.Config, w *os.File) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Server.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// cliLogger keeps command output clean unless debug logging is requested.
func cliLogger(cfg *config.Config) *slog.Logger {
	if strings.EqualFold(cfg.Log.Level, "debug") {
		return newLogger(cfg, os.Stderr)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newAIProvider(cfg *config.Config, logger *slog.Logger) ai.Provider {
	observer := ai.NewLogObserver(logger)
	if cfg.AI.Provider == "claude-cli" {
		return ai.NewClaudeCLI(cfg.AI.Model, cfg.AI.Timeout(), logger, observer)
	}
	return ai.NewOpenAI(ai.OpenAIConfig{
		APIKey:           cfg.AI.APIKey,
		BaseURL:          cfg.AI.BaseURL,
		Model:            cfg.AI.Model,
		MaxTokens:        cfg.AI.MaxTokens,
		Temperature:      cfg.AI.Temperature,
		Timeout:          cfg.AI.Timeout(),
		StructuredOutput: cfg.AI.StructuredOutput,
	}, logger, observer)
}

func newPlanClient(cfg *config.Config, logger *slog.Logger) *planclient.Client {
	return planclient.NewClient(cfg.Client.ServerURL, logger)
}

func newSupabaseClient(cfg *config.Config, logger *slog.Logger) *supabase.Client {
	return supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.UserID, logger)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	task, err := db.AddTask(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Printf("Added #%d: %s\n", task.ID, task.Content)
	return nil
}

func runTasks(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var tasks []store.Task
	if all {
		tasks, err = db.ListTasks()
	} else {
		tasks, err = db.ListIncompleteTasks()
	}
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks. Add one with 'planr add <task>'.")
		return nil
	}

	for _, t := range tasks {
		mark := " "
		if t.Status == store.TaskCompleted {
			mark = "x"
		}
		fmt.Printf("  [%s] #%-4d %s  %s\n", mark, t.ID, t.Content, t.CreatedAt.Local().Format("Jan 2 15:04"))
	}
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.CompleteTask(id); err != nil {
		return err
	}
	fmt.Printf("Completed #%d\n", id)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.DeleteTask(id); err != nil {
		return err
	}
	fmt.Printf("Deleted #%d\n", id)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	plans, err := db.ListPlans(limit)
	if err != nil {
		return fmt.Errorf("listing plans: %w", err)
	}
	if len(plans) == 0 {
		fmt.Println("No plans generated yet.")
		return nil
	}

	for _, p := range plans {
		synced := ""
		if p.Synced {
			synced = "  synced"
		}
		fmt.Printf("  %s %s  %-8s  %2d tasks  %s%s\n",
			p.PlanDate, p.PlanTime, p.Source, len(p.Plan.PlannedTasks), shortID(p.ID), synced)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	health, err := newPlanClient(cfg, logger).Health(ctx)
	if err != nil {
		fmt.Printf("API       %s  unreachable: %v\n", cfg.Client.ServerURL, err)
	} else {
		fmt.Printf("API       %s  %s (v%s, %s)\n", cfg.Client.ServerURL, health.Message, health.Version, health.Environment)
	}

	sb := newSupabaseClient(cfg, logger)
	switch {
	case !sb.Configured():
		fmt.Println("Supabase  not configured")
	case sb.Ping(ctx) != nil:
		fmt.Printf("Supabase  %s  unreachable\n", cfg.Supabase.URL)
	default:
		fmt.Printf("Supabase  %s  ok\n", cfg.Supabase.URL)
	}

	return err
}

func runDaily(cmd *cobra.Command, args []string) error {
	once, _ := cmd.Flags().GetBool("now")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	sched := scheduler.New(cfg, db, newPlanClient(cfg, logger), newSupabaseClient(cfg, logger), logger)

	ctx, cancel := signalContext()
	defer cancel()

	if once {
		rec, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Println(scheduler.Summary(rec.Plan))
		return nil
	}
	return sched.Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to planr (PID %d)\n", pid)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	c := exec.Command(editor, configPath)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
