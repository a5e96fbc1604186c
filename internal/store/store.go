package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/stimulus-cli/internal/reporting"
)

// Sink persists run reports.
type Sink interface {
	Migrate(ctx context.Context) error
	PersistRun(ctx context.Context, report *reporting.Report) error
}

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema statements, applied in order by Migrate.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
        run_id UUID PRIMARY KEY,
        spec_type TEXT NOT NULL,
        spec_address TEXT NOT NULL,
        spec_summary TEXT NOT NULL,
        seed INTEGER NOT NULL,
        frame_rate INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL,
        repetition_count INTEGER NOT NULL,
        state TEXT NOT NULL,
        frames_presented INTEGER NOT NULL,
        repetitions JSONB NOT NULL,
        started_at TIMESTAMPTZ NOT NULL,
        finished_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS responses (
        run_id UUID NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
        seq INTEGER NOT NULL,
        repetition INTEGER NOT NULL,
        frame INTEGER NOT NULL,
        key_code INTEGER NOT NULL,
        key_name TEXT NOT NULL,
        offset_seconds DOUBLE PRECISION NOT NULL,
        PRIMARY KEY (run_id, seq)
    );`,
}

const sqlInsertRun = `
        INSERT INTO runs (run_id, spec_type, spec_address, spec_summary, seed, frame_rate,
            duration_seconds, repetition_count, state, frames_presented, repetitions, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (run_id) DO NOTHING;
    `

// ResponseColumns is the column order used when copying response rows.
var ResponseColumns = []string{"run_id", "seq", "repetition", "frame", "key_code", "key_name", "offset_seconds"}

// Store is the PostgreSQL sink for run reports.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ Sink = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range Schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

// PersistRun inserts the run row and bulk copies its responses in one
// transaction. Persisting the same run twice leaves the first copy in place.
func (s *Store) PersistRun(ctx context.Context, report *reporting.Report) error {
	repetitions, err := jsoniter.Marshal(report.Repetitions)
	if err != nil {
		return fmt.Errorf("failed to encode repetitions: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	tag, err := tx.Exec(ctx, sqlInsertRun,
		report.RunID, string(report.SpecType), report.SpecAddress, report.SpecSummary,
		report.Seed, report.FrameRate, report.DurationSeconds, report.RepetitionCount,
		string(report.State), report.FramesPresented, repetitions,
		report.StartedAt.UTC(), report.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if tag.RowsAffected() == 0 {
		s.log.Info("Run already persisted", zap.String("run_id", report.RunID))
	} else if len(report.Responses) > 0 {
		if err := s.persistResponses(ctx, tx, report); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	s.log.Debug("Run persisted",
		zap.String("run_id", report.RunID),
		zap.Int("responses", len(report.Responses)))
	return nil
}

func (s *Store) persistResponses(ctx context.Context, tx pgx.Tx, report *reporting.Report) error {
	rows := make([][]interface{}, len(report.Responses))
	for i, r := range report.Responses {
		rows[i] = []interface{}{
			report.RunID, i, r.Repetition, r.Frame, r.Key, r.KeyName, r.OffsetSeconds,
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"responses"}, ResponseColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy responses: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied responses count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}
