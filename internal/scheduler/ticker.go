package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/planr/internal/calendar"
	"github.com/christopherklint97/planr/internal/config"
	"github.com/christopherklint97/planr/internal/planclient"
	"github.com/christopherklint97/planr/internal/planner"
	"github.com/christopherklint97/planr/internal/store"
	"github.com/christopherklint97/planr/internal/supabase"
)

const stateLastDailyPlan = "last_daily_plan"

// PlanRequester is the part of the planning API client the scheduler uses.
type PlanRequester interface {
	Plan(ctx context.Context, req planner.Request) (*planclient.PlanResult, error)
}

// PlanSyncer stores plan text remotely.
type PlanSyncer interface {
	Configured() bool
	SavePlan(ctx context.Context, content string) (*supabase.Item, error)
}

type Scheduler struct {
	cfg    *config.Config
	db     *store.DB
	client PlanRequester
	syncer PlanSyncer
	notify Notifier
	logger *slog.Logger
	now    func() time.Time
}

// New builds a scheduler. syncer may be nil.
func New(cfg *config.Config, db *store.DB, client PlanRequester, syncer PlanSyncer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	notify := Notifier(SendNotification)
	if !cfg.Notifications.Enabled {
		notify = func(string, string) error { return nil }
	}
	return &Scheduler{
		cfg:    cfg,
		db:     db,
		client: client,
		syncer: syncer,
		notify: notify,
		logger: logger,
		now:    time.Now,
	}
}

// Run plans the day at schedule.plan_at on each work day until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer s.removePID()

	s.retryUnsynced(ctx)

	fmt.Printf("Scheduler started (plan at %s on days %v)\n", s.cfg.Schedule.PlanAt, s.cfg.Schedule.WorkDays)

	for {
		next, err := NextRun(s.now(), s.cfg.Schedule.PlanAt, s.cfg.Schedule.WorkDays)
		if err != nil {
			return err
		}
		fmt.Printf("Next plan at %s\n", next.Format("Mon 2006-01-02 15:04"))

		select {
		case <-ctx.Done():
			fmt.Println("\nScheduler stopped.")
			return nil
		case <-time.After(time.Until(next)):
		}

		date := next.Format("2006-01-02")
		if last, _ := s.db.GetState(stateLastDailyPlan); last == date {
			s.logger.Info("plan already generated today, skipping", "date", date)
			continue
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("daily plan failed", "error", err)
		}
	}
}

// RunOnce plans the current inbox now, saves it to history and notifies.
func (s *Scheduler) RunOnce(ctx context.Context) (*store.PlanRecord, error) {
	now := s.now()
	pending, err := s.db.ListIncompleteTasks()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	tasks := store.TaskContents(pending)

	req := planclient.Assemble(tasks, now, s.calendarContext(ctx, now), "")
	res, err := s.client.Plan(ctx, req)
	if err != nil {
		s.send("planr", "Could not plan your day: "+err.Error())
		return nil, fmt.Errorf("requesting plan: %w", err)
	}

	rec := &store.PlanRecord{
		PlanDate:    req.CurrentDate,
		PlanTime:    req.CurrentTime,
		InputTasks:  res.Data.InputTasks,
		Plan:        res.Data.Plan,
		Source:      res.Data.Source,
		GeneratedAt: res.Data.GeneratedAt,
	}
	if res.Usage != nil {
		rec.TotalTokens = res.Usage.TotalTokens
	}
	if err := s.db.SavePlan(rec); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}
	if err := s.db.SetState(stateLastDailyPlan, rec.PlanDate); err != nil {
		s.logger.Warn("recording last plan date", "error", err)
	}

	s.sync(ctx, rec)
	s.send("planr", Summary(rec.Plan))
	return rec, nil
}

func (s *Scheduler) calendarContext(ctx context.Context, now time.Time) string {
	if s.cfg.Calendar.Source == "" {
		return ""
	}
	start, end := calendar.DayWindow(now)
	events, err := calendar.Fetch(ctx, s.cfg.Calendar.Source, start, end)
	if err != nil {
		s.logger.Warn("fetching calendar", "error", err)
		return ""
	}
	return calendar.FormatContext(events, now.Location())
}

func (s *Scheduler) sync(ctx context.Context, rec *store.PlanRecord) {
	if s.syncer == nil || !s.syncer.Configured() {
		return
	}
	if _, err := s.syncer.SavePlan(ctx, rec.Plan.Text(rec.PlanDate)); err != nil {
		s.logger.Warn("syncing plan", "plan_id", rec.ID, "error", err)
		return
	}
	if err := s.db.MarkPlanSynced(rec.ID); err != nil {
		s.logger.Warn("marking plan synced", "plan_id", rec.ID, "error", err)
		return
	}
	rec.Synced = true
}

// retryUnsynced pushes plans that failed to sync on earlier runs.
func (s *Scheduler) retryUnsynced(ctx context.Context) {
	if s.syncer == nil || !s.syncer.Configured() {
		return
	}
	plans, err := s.db.ListUnsyncedPlans()
	if err != nil || len(plans) == 0 {
		return
	}

	s.logger.Info("retrying unsynced plans", "count", len(plans))
	for i := range plans {
		s.sync(ctx, &plans[i])
	}
}

func (s *Scheduler) send(title, message string) {
	if err := s.notify(title, message); err != nil {
		s.logger.Debug("notification failed", "error", err)
	}
}

// Summary is the one-line notification text for a plan.
func Summary(plan planner.Plan) string {
	n := len(plan.PlannedTasks)
	if n == 0 {
		return "Your day is clear. Nothing planned yet."
	}
	noun := "tasks"
	if n == 1 {
		noun = "task"
	}
	first := plan.PlannedTasks[0]
	return fmt.Sprintf("%d %s planned. First up at %s: %s", n, noun, first.TimeSlot, first.Task)
}

// NextRun returns the first moment after now that falls at planAt ("HH:MM")
// on one of workDays (1 = Monday ... 7 = Sunday).
func NextRun(now time.Time, planAt string, workDays []int) (time.Time, error) {
	h, m, err := ParseClock(planAt)
	if err != nil {
		return time.Time{}, err
	}
	if len(workDays) == 0 {
		return time.Time{}, fmt.Errorf("schedule.work_days is empty")
	}

	for i := 0; i <= 7; i++ {
		day := now.AddDate(0, 0, i)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, now.Location())
		if candidate.After(now) && isWorkDay(candidate, workDays) {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no valid day in schedule.work_days %v", workDays)
}

func isWorkDay(t time.Time, workDays []int) bool {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	for _, d := range workDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// ParseClock reads an "HH:MM" time of day.
func ParseClock(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(s, ":")
	h, herr := strconv.Atoi(hs)
	m, merr := strconv.Atoi(ms)
	if !ok || herr != nil || merr != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid schedule.plan_at %q, want HH:MM", s)
	}
	return h, m, nil
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "planr.pid"), nil
}

func (s *Scheduler) writePID() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	path, err := pidPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (s *Scheduler) removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running scheduler found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
