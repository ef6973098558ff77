package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/planr/internal/planner"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenPath(filepath.Join(t.TempDir(), "planr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTasksLifecycle(t *testing.T) {
	db := openTestDB(t)

	a, err := db.AddTask("  Write report ")
	require.NoError(t, err)
	assert.Equal(t, "Write report", a.Content)
	assert.Equal(t, TaskPending, a.Status)

	b, err := db.AddTask("Call dentist")
	require.NoError(t, err)
	_, err = db.AddTask("Review PR")
	require.NoError(t, err)

	_, err = db.AddTask("   ")
	assert.Error(t, err)

	pending, err := db.ListIncompleteTasks()
	require.NoError(t, err)
	assert.Equal(t, []string{"Write report", "Call dentist", "Review PR"}, TaskContents(pending))

	require.NoError(t, db.CompleteTask(b.ID))
	err = db.CompleteTask(b.ID)
	assert.True(t, IsNotFound(err), "completing twice should report not found, got %v", err)

	pending, err = db.ListIncompleteTasks()
	require.NoError(t, err)
	assert.Equal(t, []string{"Write report", "Review PR"}, TaskContents(pending))

	all, err := db.ListTasks()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, TaskCompleted, all[1].Status)
	assert.False(t, all[1].CompletedAt.IsZero())
	assert.True(t, all[0].CompletedAt.IsZero())

	require.NoError(t, db.DeleteTask(a.ID))
	assert.True(t, IsNotFound(db.DeleteTask(a.ID)))

	all, err = db.ListTasks()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListIncompleteTasksEmpty(t *testing.T) {
	db := openTestDB(t)
	tasks, err := db.ListIncompleteTasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, []string{}, TaskContents(tasks))
}

func TestPlansRoundTripAndOrder(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

	first := &PlanRecord{
		PlanDate:   "2026-03-02",
		PlanTime:   "08:30",
		InputTasks: []string{"Write report", "Call dentist"},
		Plan: planner.Plan{
			PlannedTasks: []planner.PlannedTask{
				{Task: "Write report", TimeSlot: "9:00 AM", Duration: "1 hour"},
				{Task: "Call dentist", TimeSlot: "10:00 AM", Duration: "15 minutes"},
			},
			Recommendations:   []string{"Take a break at noon"},
			EstimatedDuration: "1 hour 15 minutes",
		},
		Source:      planner.SourceAI,
		TotalTokens: 321,
		GeneratedAt: base,
	}
	require.NoError(t, db.SavePlan(first))
	assert.NotEmpty(t, first.ID)

	second := &PlanRecord{
		PlanDate:    "2026-03-03",
		PlanTime:    "14:00",
		Plan:        planner.Fallback("plain text", nil),
		Source:      planner.SourceFallback,
		GeneratedAt: base.Add(24 * time.Hour),
	}
	require.NoError(t, db.SavePlan(second))

	got, err := db.GetPlan(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.InputTasks, got.InputTasks)
	assert.Equal(t, first.Plan, got.Plan)
	assert.Equal(t, planner.SourceAI, got.Source)
	assert.Equal(t, int64(321), got.TotalTokens)
	assert.True(t, base.Equal(got.GeneratedAt))
	assert.False(t, got.Synced)

	list, err := db.ListPlans(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, []string{}, list[0].InputTasks)

	limited, err := db.ListPlans(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPlanSyncTracking(t *testing.T) {
	db := openTestDB(t)

	rec := &PlanRecord{PlanDate: "2026-03-02", PlanTime: "09:00", Source: planner.SourceAI}
	require.NoError(t, db.SavePlan(rec))

	unsynced, err := db.ListUnsyncedPlans()
	require.NoError(t, err)
	require.Len(t, unsynced, 1)

	require.NoError(t, db.MarkPlanSynced(rec.ID))
	unsynced, err = db.ListUnsyncedPlans()
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	assert.True(t, IsNotFound(db.MarkPlanSynced("missing")))

	_, err = db.GetPlan("missing")
	assert.True(t, IsNotFound(err))
}

func TestState(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetState("last_daily_plan")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetState("last_daily_plan", "2026-03-02"))
	require.NoError(t, db.SetState("last_daily_plan", "2026-03-03"))

	v, err = db.GetState("last_daily_plan")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", v)
}

func TestImportTask(t *testing.T) {
	db := openTestDB(t)
	created := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	task, err := db.ImportTask(Task{Content: "  Pay rent ", Status: TaskCompleted, CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, "Pay rent", task.Content)
	assert.False(t, task.CompletedAt.IsZero())

	all, err := db.ListTasks()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, TaskCompleted, all[0].Status)
	assert.True(t, created.Equal(all[0].CreatedAt))

	pending, err := db.ImportTask(Task{Content: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, TaskPending, pending.Status)
	assert.False(t, pending.CreatedAt.IsZero())

	_, err = db.ImportTask(Task{Content: " "})
	assert.Error(t, err)
	_, err = db.ImportTask(Task{Content: "x", Status: "archived"})
	assert.Error(t, err)
}
