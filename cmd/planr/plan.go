package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tj/go-naturaldate"

	"github.com/christopherklint97/planr/internal/ai"
	"github.com/christopherklint97/planr/internal/calendar"
	"github.com/christopherklint97/planr/internal/planclient"
	"github.com/christopherklint97/planr/internal/planner"
	"github.com/christopherklint97/planr/internal/scheduler"
	"github.com/christopherklint97/planr/internal/store"
	"github.com/christopherklint97/planr/internal/supabase"
	"github.com/christopherklint97/planr/internal/tui"
)

func runPlan(cmd *cobra.Command, args []string) error {
	dateExpr, _ := cmd.Flags().GetString("date")
	extraContext, _ := cmd.Flags().GetString("context")
	customPrompt, _ := cmd.Flags().GetString("prompt")
	calSource, _ := cmd.Flags().GetString("calendar")
	icsPath, _ := cmd.Flags().GetString("ics")
	sync, _ := cmd.Flags().GetBool("sync")
	interactive, _ := cmd.Flags().GetBool("interactive")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	if interactive && !isTerminal(os.Stdin) {
		return fmt.Errorf("--interactive needs a terminal")
	}

	target, err := resolvePlanTime(dateExpr, time.Now(), cfg.Schedule.PlanAt)
	if err != nil {
		return err
	}
	date := target.Format("2006-01-02")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	pending, err := db.ListIncompleteTasks()
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	tasks := store.TaskContents(pending)

	var sb *supabase.Client
	if sync {
		sb = newSupabaseClient(cfg, logger)
		if !sb.Configured() {
			return fmt.Errorf("--sync needs supabase.url and supabase.anon_key (or SUPABASE_URL and SUPABASE_ANON_KEY)")
		}
		items, err := sb.ListActionableItems(ctx)
		if err != nil {
			return err
		}
		tasks = mergeTasks(tasks, supabase.ItemContents(items))
	}

	if calSource == "" {
		calSource = cfg.Calendar.Source
	}
	userContext := joinContext(extraContext, calendarContext(ctx, calSource, target, logger))

	client := newPlanClient(cfg, logger)

	var (
		outcome    *tui.Outcome
		usage      *ai.Usage
		inputTasks []string
	)

	if interactive {
		header := "Planning " + target.Format("Monday, January 2")
		planFn := func(ctx context.Context, captured []string) (*tui.Outcome, error) {
			res, err := client.Plan(ctx, planclient.Assemble(captured, target, userContext, customPrompt))
			if err != nil {
				return nil, err
			}
			usage = res.Usage
			return &tui.Outcome{Plan: res.Data.Plan, Source: res.Data.Source}, nil
		}

		app := tui.NewApp(header, tasks, planFn)
		if _, err := tea.NewProgram(app).Run(); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}

		result := app.GetResult()
		if result == nil {
			return nil
		}
		if err := saveNewTasks(db, tasks, result.Tasks); err != nil {
			return err
		}
		if result.Cancelled || result.Outcome == nil {
			fmt.Println("Planning cancelled.")
			return nil
		}
		outcome = result.Outcome
		inputTasks = result.Tasks
	} else {
		if len(tasks) == 0 && !cfg.Planning.AllowEmptyTasks {
			fmt.Println(planner.Offline(date, nil))
			fmt.Println("Add tasks with 'planr add <task>' or run 'planr plan -i'.")
			return nil
		}

		res, err := client.Plan(ctx, planclient.Assemble(tasks, target, userContext, customPrompt))
		if err != nil {
			var apiErr *planclient.APIError
			if errors.As(err, &apiErr) {
				if missing, ok := apiErr.Details["missingFields"]; ok {
					return fmt.Errorf("%s: %v", apiErr.Message, missing)
				}
				return err
			}
			fmt.Fprintf(os.Stderr, "Planning API unreachable (%v); showing a simple plan instead.\n\n", err)
			fmt.Print(planner.Offline(date, tasks))
			return nil
		}

		outcome = &tui.Outcome{Plan: res.Data.Plan, Source: res.Data.Source}
		usage = res.Usage
		inputTasks = res.Data.InputTasks

		if isTerminal(os.Stdout) {
			fmt.Println(tui.RenderPlan(outcome.Plan, outcome.Source))
		} else {
			fmt.Print(outcome.Plan.Text(date))
		}
	}

	rec := &store.PlanRecord{
		PlanDate:   date,
		PlanTime:   target.Format("15:04"),
		InputTasks: inputTasks,
		Plan:       outcome.Plan,
		Source:     outcome.Source,
	}
	if usage != nil {
		rec.TotalTokens = usage.TotalTokens
	}
	if err := db.SavePlan(rec); err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}

	if icsPath != "" {
		if err := writeICS(icsPath, target, outcome.Plan); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", icsPath)
	}

	if sb != nil {
		if _, err := sb.SavePlan(ctx, outcome.Plan.Text(date)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: plan saved locally but not synced: %v\n", err)
			return nil
		}
		if err := db.MarkPlanSynced(rec.ID); err != nil {
			return fmt.Errorf("marking plan synced: %w", err)
		}
		fmt.Println("Plan synced to Supabase.")
	}

	return nil
}

// resolvePlanTime turns --date into the moment the plan is for. Today keeps
// the current time; another day starts at schedule.plan_at.
func resolvePlanTime(expr string, now time.Time, planAt string) (time.Time, error) {
	if strings.TrimSpace(expr) == "" {
		return now, nil
	}

	t, err := naturaldate.Parse(expr, now, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --date %q: %w", expr, err)
	}
	if sameDay(t, now) {
		return now, nil
	}

	h, m, err := scheduler.ParseClock(planAt)
	if err != nil {
		h, m = 8, 30
	}
	return time.Date(t.Year(), t.Month(), t.Day(), h, m, 0, 0, now.Location()), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// mergeTasks appends remote tasks not already present locally.
func mergeTasks(local, remote []string) []string {
	seen := make(map[string]bool, len(local))
	out := make([]string, 0, len(local)+len(remote))
	for _, t := range local {
		seen[normalizeTask(t)] = true
		out = append(out, t)
	}
	for _, t := range remote {
		key := normalizeTask(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(t))
	}
	return out
}

func normalizeTask(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func joinContext(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func calendarContext(ctx context.Context, source string, day time.Time, logger *slog.Logger) string {
	if source == "" {
		return ""
	}
	start, end := calendar.DayWindow(day)
	events, err := calendar.Fetch(ctx, source, start, end)
	if err != nil {
		logger.Warn("fetching calendar", "source", source, "error", err)
		return ""
	}
	return calendar.FormatContext(events, day.Location())
}

// saveNewTasks stores tasks captured in the TUI that were not in the inbox.
func saveNewTasks(db *store.DB, before, after []string) error {
	known := make(map[string]bool, len(before))
	for _, t := range before {
		known[normalizeTask(t)] = true
	}
	for _, t := range after {
		if known[normalizeTask(t)] {
			continue
		}
		if _, err := db.AddTask(t); err != nil {
			return fmt.Errorf("saving task %q: %w", t, err)
		}
		known[normalizeTask(t)] = true
	}
	return nil
}

func writeICS(path string, day time.Time, plan planner.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := calendar.ExportPlan(f, day, plan, day.Location()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
