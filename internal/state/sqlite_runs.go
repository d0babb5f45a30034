package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

const runColumns = `id, recipe, seed, status, row_count, started_at, completed_at, error`

func (s *SQLiteStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	return s.db, nil
}

// CreateRun inserts a run in the running state.
func (s *SQLiteStore) CreateRun(recipe string, seed uint64) (*core.Run, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	run := &core.Run{
		ID:        newRunID(),
		Recipe:    recipe,
		Seed:      seed,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("recipe", recipe))

	// seeds use the full uint64 range, which database/sql can't bind
	_, err = db.Exec(
		`INSERT INTO runs (id, recipe, seed, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Recipe, strconv.FormatUint(seed, 10), string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run for %s: %w", recipe, err)
	}
	return run, nil
}

// GetRun looks a run up by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}
	return run, nil
}

// CompleteRun stores the outcome of a run. errMsg is stored as NULL when
// empty.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, rows int64, errMsg string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	var errValue sql.NullString
	if errMsg != "" {
		errValue = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := db.Exec(
		`UPDATE runs SET status = ?, row_count = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), rows, time.Now().UTC(), errValue, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
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
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	var (
		run         core.Run
		seed        string
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Recipe, &seed, &status, &run.Rows, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}

	parsed, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q for run %s: %w", seed, run.ID, err)
	}
	run.Seed = parsed
	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return &run, nil
}
