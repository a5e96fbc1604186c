// Package sqlite is a single-file run report sink for machines without a
// database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/xkilldash9x/stimulus-cli/internal/presentation"
	"github.com/xkilldash9x/stimulus-cli/internal/reporting"
	"github.com/xkilldash9x/stimulus-cli/internal/store"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		spec_type TEXT NOT NULL,
		spec_address TEXT NOT NULL,
		spec_summary TEXT NOT NULL,
		seed INTEGER NOT NULL,
		frame_rate INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		repetition_count INTEGER NOT NULL,
		state TEXT NOT NULL,
		frames_presented INTEGER NOT NULL,
		repetitions BLOB NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		repetition INTEGER NOT NULL,
		frame INTEGER NOT NULL,
		key_code INTEGER NOT NULL,
		key_name TEXT NOT NULL,
		offset_seconds REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
}

// Store writes run reports to a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

var _ store.Sink = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db, path: path, log: logger.Named("sqlite")}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

// PersistRun stores the run and its responses in one transaction. A run that
// is already stored is left untouched.
func (s *Store) PersistRun(ctx context.Context, report *reporting.Report) (retErr error) {
	repetitions, err := jsoniter.Marshal(report.Repetitions)
	if err != nil {
		return fmt.Errorf("encode repetitions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO runs (run_id, spec_type, spec_address, spec_summary,
		seed, frame_rate, duration_seconds, repetition_count, state, frames_presented, repetitions,
		started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, string(report.SpecType), report.SpecAddress, report.SpecSummary,
		report.Seed, report.FrameRate, report.DurationSeconds, report.RepetitionCount,
		string(report.State), report.FramesPresented, repetitions,
		report.StartedAt.UTC().Format(time.RFC3339Nano), report.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if n == 0 {
		s.log.Info("Run already persisted", zap.String("run_id", report.RunID))
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO responses (run_id, seq, repetition, frame, key_code,
		key_name, offset_seconds) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare responses: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, r := range report.Responses {
		if _, err := stmt.ExecContext(ctx, report.RunID, i, r.Repetition, r.Frame, r.Key, r.KeyName, r.OffsetSeconds); err != nil {
			return fmt.Errorf("insert response %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("Run persisted", zap.String("run_id", report.RunID), zap.String("path", s.path))
	return nil
}

// LoadRun reads a stored run back into a report.
func (s *Store) LoadRun(ctx context.Context, runID string) (*reporting.Report, error) {
	var (
		r                   reporting.Report
		specType, state     string
		repetitions         []byte
		startedAt, finished string
	)
	err := s.db.QueryRowContext(ctx, `SELECT run_id, spec_type, spec_address, spec_summary, seed, frame_rate,
		duration_seconds, repetition_count, state, frames_presented, repetitions, started_at, finished_at
		FROM runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &specType, &r.SpecAddress, &r.SpecSummary, &r.Seed, &r.FrameRate,
		&r.DurationSeconds, &r.RepetitionCount, &state, &r.FramesPresented, &repetitions,
		&startedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	r.SpecType = stimulus.Kind(specType)
	r.State = presentation.State(state)
	if err := jsoniter.Unmarshal(repetitions, &r.Repetitions); err != nil {
		return nil, fmt.Errorf("decode repetitions: %w", err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("decode started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("decode finished_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key_code, key_name, offset_seconds, repetition, frame
		FROM responses WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("select responses: %w", err)
	}
	defer func() { _ = rows.Close() }()
	r.Responses = []reporting.Response{}
	for rows.Next() {
		var resp reporting.Response
		if err := rows.Scan(&resp.Key, &resp.KeyName, &resp.OffsetSeconds, &resp.Repetition, &resp.Frame); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.Responses = append(r.Responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return &r, nil
}
