package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/planr/internal/store"
)

func openTempDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenPath(filepath.Join(t.TempDir(), "planr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExportImportRoundTrip(t *testing.T) {
	src := openTempDB(t)
	_, err := src.AddTask("Write report")
	require.NoError(t, err)
	done, err := src.AddTask("Call dentist")
	require.NoError(t, err)
	require.NoError(t, src.CompleteTask(done.ID))

	var buf bytes.Buffer
	n, err := exportTasks(src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), `"status": "completed"`)

	dst := openTempDB(t)
	_, err = dst.AddTask("write  REPORT")
	require.NoError(t, err)

	tasks, err := decodeImport(&buf)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	added, skipped, err := importTasks(dst, tasks)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, skipped)

	all, err := dst.ListTasks()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Call dentist", all[1].Content)
	assert.Equal(t, store.TaskCompleted, all[1].Status)
	assert.False(t, all[1].CompletedAt.IsZero())

	pending, err := dst.ListIncompleteTasks()
	require.NoError(t, err)
	assert.Equal(t, []string{"write  REPORT"}, store.TaskContents(pending))
}

func TestDecodeImportLegacyItems(t *testing.T) {
	in := `[
		{"id":"1","text":"Buy milk","type":"capture","timestamp":"2025-06-01T09:30:00.000Z"},
		{"id":"2","text":"Old plan","type":"plan"},
		{"id":"3","content":"Pay rent","completed":true},
		{"id":"4","text":"   "}
	]`

	tasks, err := decodeImport(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Buy milk", tasks[0].Content)
	assert.Equal(t, store.TaskPending, tasks[0].Status)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), tasks[0].CreatedAt.UTC())

	assert.Equal(t, "Pay rent", tasks[1].Content)
	assert.Equal(t, store.TaskCompleted, tasks[1].Status)
}

func TestDecodeImportRejectsNonArray(t *testing.T) {
	_, err := decodeImport(strings.NewReader(`{"content":"x"}`))
	assert.Error(t, err)
}

func TestImportTasksDedupesWithinFile(t *testing.T) {
	db := openTempDB(t)
	added, skipped, err := importTasks(db, []store.Task{
		{Content: "Review PR"},
		{Content: "review pr"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, skipped)
}
