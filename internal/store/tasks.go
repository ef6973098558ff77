package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
)

type Task struct {
	ID          int64
	Content     string
	Status      string
	CreatedAt   time.Time
	CompletedAt time.Time
}

func (db *DB) AddTask(content string) (*Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("task content is empty")
	}

	now := time.Now().UTC()
	result, err := db.Exec(
		"INSERT INTO tasks (content, status, created_at) VALUES (?, ?, ?)",
		content, TaskPending, now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading task id: %w", err)
	}

	return &Task{ID: id, Content: content, Status: TaskPending, CreatedAt: now}, nil
}

// ImportTask inserts a task carried over from a backup, keeping its status
// and timestamps. Zero timestamps default to now.
func (db *DB) ImportTask(t Task) (*Task, error) {
	t.Content = strings.TrimSpace(t.Content)
	if t.Content == "" {
		return nil, fmt.Errorf("task content is empty")
	}
	switch t.Status {
	case "":
		t.Status = TaskPending
	case TaskPending, TaskCompleted:
	default:
		return nil, fmt.Errorf("unknown task status %q", t.Status)
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	var completed sql.NullString
	if t.Status == TaskCompleted {
		if t.CompletedAt.IsZero() {
			t.CompletedAt = now
		}
		completed = sql.NullString{String: t.CompletedAt.UTC().Format(timeLayout), Valid: true}
	} else {
		t.CompletedAt = time.Time{}
	}

	result, err := db.Exec(
		"INSERT INTO tasks (content, status, created_at, completed_at) VALUES (?, ?, ?, ?)",
		t.Content, t.Status, t.CreatedAt.UTC().Format(timeLayout), completed,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	if t.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading task id: %w", err)
	}
	return &t, nil
}

// ListIncompleteTasks returns pending tasks in capture order.
func (db *DB) ListIncompleteTasks() ([]Task, error) {
	return db.queryTasks(
		`SELECT id, content, status, created_at, completed_at
		 FROM tasks
		 WHERE status = ?
		 ORDER BY id ASC`,
		TaskPending,
	)
}

func (db *DB) ListTasks() ([]Task, error) {
	return db.queryTasks(
		`SELECT id, content, status, created_at, completed_at
		 FROM tasks
		 ORDER BY id ASC`,
	)
}

func (db *DB) CompleteTask(id int64) error {
	result, err := db.Exec(
		"UPDATE tasks SET status = ?, completed_at = ? WHERE id = ? AND status = ?",
		TaskCompleted, time.Now().UTC().Format(timeLayout), id, TaskPending,
	)
	if err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	return requireRow(result, fmt.Sprintf("no pending task with id %d", id))
}

func (db *DB) DeleteTask(id int64) error {
	result, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireRow(result, fmt.Sprintf("no task with id %d", id))
}

func requireRow(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", notFound, ErrNotFound)
	}
	return nil
}

// TaskContents extracts the task descriptions, preserving order.
func TaskContents(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Content
	}
	return out
}

func (db *DB) queryTasks(query string, args ...interface{}) ([]Task, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var createdStr string
		var completedStr sql.NullString

		if err := rows.Scan(&t.ID, &t.Content, &t.Status, &createdStr, &completedStr); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}

		if ts, err := time.Parse(timeLayout, createdStr); err == nil {
			t.CreatedAt = ts
		}
		if completedStr.Valid {
			if ts, err := time.Parse(timeLayout, completedStr.String); err == nil {
				t.CompletedAt = ts
			}
		}

		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}
