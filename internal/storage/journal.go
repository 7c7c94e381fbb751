// Package storage persists plan outcomes in an embedded sqlite journal.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"gmx_go/internal/engine"
)

// PlanJournal records every terminal pipeline outcome in SQLite.
// Append-only; rows are never updated or deleted by the application.
type PlanJournal struct {
	db *sql.DB
}

// NewPlanJournal opens (or creates) the journal with WAL mode enabled.
func NewPlanJournal(dbPath string) (*PlanJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS plans (
			row_id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			chain TEXT NOT NULL,
			symbol TEXT NOT NULL,
			kind TEXT NOT NULL,
			mode TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_plans_recorded ON plans(recorded_at);
		CREATE INDEX IF NOT EXISTS idx_plans_plan_id ON plans(plan_id);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create plans table: %w", err)
	}

	return &PlanJournal{db: db}, nil
}

// Record appends one outcome. The same plan ID may appear multiple times
// (idempotent re-planning); each call gets its own row.
func (j *PlanJournal) Record(ctx context.Context, rec engine.Record) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO plans
		 (row_id, plan_id, chain, symbol, kind, mode, outcome, reason, payload, created_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.ID, rec.Chain, rec.Symbol, rec.Kind, rec.Mode,
		rec.Outcome, rec.Reason, rec.Payload, rec.CreatedUnixM, time.Now().UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *PlanJournal) Recent(ctx context.Context, limit int) ([]engine.Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT plan_id, chain, symbol, kind, mode, outcome, reason, payload, created_at
		 FROM plans ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var records []engine.Record
	for rows.Next() {
		var rec engine.Record
		if err := rows.Scan(&rec.ID, &rec.Chain, &rec.Symbol, &rec.Kind, &rec.Mode,
			&rec.Outcome, &rec.Reason, &rec.Payload, &rec.CreatedUnixM); err != nil {
			return nil, fmt.Errorf("failed to scan plan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// CountByOutcome aggregates journal rows for the status display.
func (j *PlanJournal) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM plans GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count plans: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (j *PlanJournal) Close() error {
	return j.db.Close()
}
