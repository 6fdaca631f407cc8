package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/playlake/pkg/core"
)

const runColumns = `id, phase, status, started_at, completed_at, error`

const tableRunColumns = `id, run_id, stage, table_name, path, status, rows, fingerprint, execution_ms, error, created_at`

type scanner interface {
	Scan(dest ...any) error
}

// CreateRun creates a new pipeline run in the running state.
func (s *SQLiteStore) CreateRun(phase string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Phase:     phase,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("phase", phase))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, phase, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Phase, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx(),
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), nullIfEmpty(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetLatestRun retrieves the most recently started run.
func (s *SQLiteStore) GetLatestRun() (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// RecordTableRun stores the outcome of writing one table. ID and CreatedAt
// are filled in when empty.
func (s *SQLiteStore) RecordTableRun(tr *core.TableRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if tr.ID == "" {
		tr.ID = generateID()
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}

	s.logger.Debug("recording table run",
		slog.String("run_id", tr.RunID),
		slog.String("table", tr.Table),
		slog.String("status", string(tr.Status)),
	)

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO table_runs (`+tableRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.RunID, tr.Stage, tr.Table, tr.Path, string(tr.Status),
		tr.Rows, tr.Fingerprint, tr.ExecutionMS, nullIfEmpty(tr.Error), tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record table run: %w", err)
	}
	return nil
}

// GetTableRunsForRun returns the table runs of a run in the order recorded.
func (s *SQLiteStore) GetTableRunsForRun(runID string) ([]*core.TableRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+tableRunColumns+` FROM table_runs WHERE run_id = ? ORDER BY created_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.TableRun
	for rows.Next() {
		tr, err := scanTableRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table run: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table runs: %w", err)
	}
	return out, nil
}

// GetLatestTableRun returns the most recent successful write of table, or
// nil if there is none.
func (s *SQLiteStore) GetLatestTableRun(table string) (*core.TableRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	tr, err := scanTableRun(s.db.QueryRowContext(ctx(),
		`SELECT `+tableRunColumns+` FROM table_runs
		 WHERE table_name = ? AND status = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		table, string(core.TableRunStatusSuccess)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest table run: %w", err)
	}
	return tr, nil
}

func scanRun(row scanner) (*core.Run, error) {
	run := &core.Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := row.Scan(&run.ID, &run.Phase, &status, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return run, nil
}

func scanTableRun(row scanner) (*core.TableRun, error) {
	tr := &core.TableRun{}
	var status string
	var errMsg sql.NullString

	err := row.Scan(&tr.ID, &tr.RunID, &tr.Stage, &tr.Table, &tr.Path, &status,
		&tr.Rows, &tr.Fingerprint, &tr.ExecutionMS, &errMsg, &tr.CreatedAt)
	if err != nil {
		return nil, err
	}
	tr.Status = core.TableRunStatus(status)
	tr.Error = errMsg.String
	return tr, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
