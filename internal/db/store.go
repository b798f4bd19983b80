package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = errors.New("run not found")

// Store records automation runs.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts a finished run and its unit results. Saving the same run id
// twice replaces the earlier record.
func (s *Store) SaveRun(ctx context.Context, r *automation.Report) error {
	if r.RunID == "" {
		return errors.New("run id is required")
	}
	updated, converged, failed := r.Counts()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.RunID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, automation, mode, trigger, dry_run, started_at, finished_at, error, updated, converged, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Automation, r.Mode.String(), r.Trigger, r.DryRun,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Error,
		updated, converged, failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, u := range r.Units {
		changes, err := json.Marshal(u.Changes)
		if err != nil {
			return fmt.Errorf("encode changes: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_units (run_id, position, unit_id, status, error, changes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, i, u.ID, string(u.Status), u.Error, string(changes),
		)
		if err != nil {
			return fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// RunSummary is a row of the run history without per-unit detail.
type RunSummary struct {
	RunID      string       `json:"runId"`
	Automation string       `json:"automation"`
	Mode       pricing.Mode `json:"mode"`
	Trigger    string       `json:"trigger,omitempty"`
	DryRun     bool         `json:"dryRun"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Error      string       `json:"error,omitempty"`
	Updated    int          `json:"updated"`
	Converged  int          `json:"converged"`
	Failed     int          `json:"failed"`
}

const summaryColumns = `id, automation, mode, trigger, dry_run, started_at, finished_at, error, updated, converged, failed`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (RunSummary, error) {
	var (
		rs                RunSummary
		mode              string
		started, finished int64
	)
	if err := row.Scan(&rs.RunID, &rs.Automation, &mode, &rs.Trigger, &rs.DryRun,
		&started, &finished, &rs.Error, &rs.Updated, &rs.Converged, &rs.Failed); err != nil {
		return RunSummary{}, err
	}
	m, err := pricing.ParseMode(mode)
	if err != nil {
		return RunSummary{}, err
	}
	rs.Mode = m
	rs.StartedAt = time.UnixMilli(started)
	rs.FinishedAt = time.UnixMilli(finished)
	return rs, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns the latest 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		rs, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// GetRun loads a full report including its unit results.
func (s *Store) GetRun(ctx context.Context, id string) (*automation.Report, error) {
	rs, err := scanSummary(s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	report := &automation.Report{
		RunID:      rs.RunID,
		Automation: rs.Automation,
		Mode:       rs.Mode,
		Trigger:    rs.Trigger,
		DryRun:     rs.DryRun,
		StartedAt:  rs.StartedAt,
		FinishedAt: rs.FinishedAt,
		Error:      rs.Error,
		Units:      []automation.UnitResult{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT unit_id, status, error, changes FROM run_units WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			u       automation.UnitResult
			status  string
			changes string
		)
		if err := rows.Scan(&u.ID, &status, &u.Error, &changes); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Status = automation.UnitStatus(status)
		if err := json.Unmarshal([]byte(changes), &u.Changes); err != nil {
			return nil, fmt.Errorf("decode changes for %s: %w", u.ID, err)
		}
		report.Units = append(report.Units, u)
	}
	return report, rows.Err()
}

// LastModes returns the mode of the latest run per automation that finished
// without a run-level error and was not a dry run.
func (s *Store) LastModes(ctx context.Context) (map[string]pricing.Mode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.automation, r.mode FROM runs r
		WHERE r.error = '' AND r.dry_run = 0
		  AND r.started_at = (
			SELECT MAX(started_at) FROM runs
			WHERE automation = r.automation AND error = '' AND dry_run = 0
		  )`)
	if err != nil {
		return nil, fmt.Errorf("last modes: %w", err)
	}
	defer rows.Close()

	modes := map[string]pricing.Mode{}
	for rows.Next() {
		var name, mode string
		if err := rows.Scan(&name, &mode); err != nil {
			return nil, err
		}
		m, err := pricing.ParseMode(mode)
		if err != nil {
			return nil, err
		}
		modes[name] = m
	}
	return modes, rows.Err()
}
