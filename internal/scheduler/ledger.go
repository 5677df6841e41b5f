package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger records scan runs keyed by (job, as_of). Begin returns false when
// a run for the same key is already running or has succeeded; only failed
// runs may be retried.
type Ledger interface {
	Begin(ctx context.Context, job string, asOf time.Time) (bool, error)
	Finish(ctx context.Context, job string, asOf time.Time, processed int, runErr error) error
}

type PGLedger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool, now: time.Now}
}

func (l *PGLedger) Begin(ctx context.Context, job string, asOf time.Time) (bool, error) {
	var started time.Time
	err := l.pool.QueryRow(ctx, `
		INSERT INTO scan_runs (job, as_of, status, started_at)
		VALUES ($1, $2, 'running', $3)
		ON CONFLICT (job, as_of) DO UPDATE
		SET status = 'running', started_at = EXCLUDED.started_at, finished_at = NULL, error = NULL
		WHERE scan_runs.status = 'failed'
		RETURNING started_at`,
		job, asOf, l.now().UTC(),
	).Scan(&started)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("begin scan run: %w", err)
	}
	return true, nil
}

func (l *PGLedger) Finish(ctx context.Context, job string, asOf time.Time, processed int, runErr error) error {
	status := "succeeded"
	var errText *string
	if runErr != nil {
		status = "failed"
		msg := runErr.Error()
		errText = &msg
	}
	_, err := l.pool.Exec(ctx, `
		UPDATE scan_runs
		SET status = $3, processed = $4, error = $5, finished_at = $6
		WHERE job = $1 AND as_of = $2`,
		job, asOf, status, processed, errText, l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("finish scan run: %w", err)
	}
	return nil
}
