package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/planr/internal/store"
)

func TestResolvePlanTime(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 10, 0, 0, time.UTC)

	got, err := resolvePlanTime("", now, "08:30")
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = resolvePlanTime("tomorrow", now, "08:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 8, 30, 0, 0, time.UTC), got)

	got, err = resolvePlanTime("tomorrow", now, "bogus")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())
	assert.Equal(t, 30, got.Minute())
}

func TestMergeTasks(t *testing.T) {
	got := mergeTasks(
		[]string{"Write report", "Call dentist"},
		[]string{"write  report", "  Review PR ", "", "Review PR"},
	)
	assert.Equal(t, []string{"Write report", "Call dentist", "Review PR"}, got)
	assert.Empty(t, mergeTasks(nil, nil))
}

func TestJoinContext(t *testing.T) {
	assert.Equal(t, "", joinContext("", "  "))
	assert.Equal(t, "Gym at 6pm\nCalendar: 10:00-10:30 Standup", joinContext(" Gym at 6pm ", "Calendar: 10:00-10:30 Standup"))
}

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID("#12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"abc", "0", "-3"} {
		_, err := parseTaskID(bad)
		assert.Error(t, err, bad)
	}
}

func TestSaveNewTasks(t *testing.T) {
	db, err := store.OpenPath(filepath.Join(t.TempDir(), "planr.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, saveNewTasks(db, []string{"Existing"}, []string{"Existing", "New one", "new  one"}))

	tasks, err := db.ListIncompleteTasks()
	require.NoError(t, err)
	assert.Equal(t, []string{"New one"}, store.TaskContents(tasks))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123abcd", shortID("0123abcd-ef45-6789"))
	assert.Equal(t, "abc", shortID("abc"))
}
