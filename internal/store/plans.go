package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/christopherklint97/planr/internal/planner"
)

// PlanRecord is a generated plan kept in local history.
type PlanRecord struct {
	ID          string
	PlanDate    string
	PlanTime    string
	InputTasks  []string
	Plan        planner.Plan
	Source      planner.Source
	TotalTokens int64
	GeneratedAt time.Time
	Synced      bool
}

// SavePlan inserts rec, assigning an ID and timestamp when unset.
func (db *DB) SavePlan(rec *PlanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now()
	}
	if rec.InputTasks == nil {
		rec.InputTasks = []string{}
	}

	tasksJSON, err := json.Marshal(rec.InputTasks)
	if err != nil {
		return fmt.Errorf("marshaling input tasks: %w", err)
	}
	planJSON, err := json.Marshal(rec.Plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO plans (id, plan_date, plan_time, input_tasks, plan_json, source, total_tokens, generated_at, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlanDate, rec.PlanTime, string(tasksJSON), string(planJSON),
		string(rec.Source), rec.TotalTokens,
		rec.GeneratedAt.UTC().Format(timeLayout),
		rec.Synced,
	)
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (db *DB) GetPlan(id string) (*PlanRecord, error) {
	plans, err := db.queryPlans(
		`SELECT id, plan_date, plan_time, input_tasks, plan_json, source, total_tokens, generated_at, synced
		 FROM plans WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return &plans[0], nil
}

// ListPlans returns the most recent plans first.
func (db *DB) ListPlans(limit int) ([]PlanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return db.queryPlans(
		`SELECT id, plan_date, plan_time, input_tasks, plan_json, source, total_tokens, generated_at, synced
		 FROM plans
		 ORDER BY generated_at DESC
		 LIMIT ?`,
		limit,
	)
}

func (db *DB) ListUnsyncedPlans() ([]PlanRecord, error) {
	return db.queryPlans(
		`SELECT id, plan_date, plan_time, input_tasks, plan_json, source, total_tokens, generated_at, synced
		 FROM plans
		 WHERE synced = 0
		 ORDER BY generated_at ASC`,
	)
}

func (db *DB) MarkPlanSynced(id string) error {
	result, err := db.Exec("UPDATE plans SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking plan synced: %w", err)
	}
	return requireRow(result, "no plan with id "+id)
}

func (db *DB) queryPlans(query string, args ...interface{}) ([]PlanRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []PlanRecord
	for rows.Next() {
		var p PlanRecord
		var tasksJSON, planJSON, source, generatedStr string

		if err := rows.Scan(
			&p.ID, &p.PlanDate, &p.PlanTime, &tasksJSON, &planJSON,
			&source, &p.TotalTokens, &generatedStr, &p.Synced,
		); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}

		if err := json.Unmarshal([]byte(tasksJSON), &p.InputTasks); err != nil {
			return nil, fmt.Errorf("decoding input tasks for plan %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(planJSON), &p.Plan); err != nil {
			return nil, fmt.Errorf("decoding plan %s: %w", p.ID, err)
		}
		p.Source = planner.Source(source)
		if ts, err := time.Parse(timeLayout, generatedStr); err == nil {
			p.GeneratedAt = ts
		}

		plans = append(plans, p)
	}

	return plans, rows.Err()
}

// IsNotFound reports whether err came from a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
