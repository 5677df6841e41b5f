package scheduler

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/platform/logger"
)

// ScanFunc runs one scan as of asOf and returns how many records it changed.
type ScanFunc func(ctx context.Context, asOf time.Time) (int, error)

// Job is a periodic scan. AsOf values are truncated to Resolution so that
// every trigger inside the same window maps to one ledger row.
type Job struct {
	Name       string
	Resolution time.Duration
	Scan       ScanFunc
}

// Outcome describes what a Run did.
type Outcome struct {
	Job       string
	AsOf      time.Time
	Processed int
	Skipped   bool
}

const defaultLockTTL = 10 * time.Minute

type Runner struct {
	jobs    map[string]Job
	locker  Locker
	ledger  Ledger
	lockTTL time.Duration
	now     func() time.Time
	log     *logger.Logger
}

func NewRunner(locker Locker, ledger Ledger, log *logger.Logger, jobs ...Job) *Runner {
	if locker == nil {
		locker = NewLocalLock()
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{
		jobs:    make(map[string]Job, len(jobs)),
		locker:  locker,
		ledger:  ledger,
		lockTTL: defaultLockTTL,
		now:     time.Now,
		log:     log,
	}
	for _, j := range jobs {
		r.jobs[j.Name] = j
	}
	return r
}

// Run executes job once for asOf (now when zero). Overlapping runs and
// runs whose (job, asOf) already succeeded are skipped without error.
func (r *Runner) Run(ctx context.Context, name string, asOf time.Time) (Outcome, error) {
	job, ok := r.jobs[name]
	if !ok {
		return Outcome{}, fmt.Errorf("unknown scan job %q", name)
	}

	if asOf.IsZero() {
		asOf = r.now()
	}
	asOf = asOf.UTC()
	if job.Resolution > 0 {
		asOf = asOf.Truncate(job.Resolution)
	}
	out := Outcome{Job: name, AsOf: asOf}
	started := time.Now()

	unlock, locked, err := r.locker.TryLock(ctx, name, r.lockTTL)
	if err != nil {
		return out, fmt.Errorf("acquire %s lock: %w", name, err)
	}
	if !locked {
		out.Skipped = true
		r.log.ScanRun(name, asOf, 0, true, time.Since(started))
		return out, nil
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("scan lock release failed", "job", name, "error", err)
		}
	}()

	if r.ledger != nil {
		fresh, err := r.ledger.Begin(ctx, name, asOf)
		if err != nil {
			return out, err
		}
		if !fresh {
			out.Skipped = true
			r.log.ScanRun(name, asOf, 0, true, time.Since(started))
			return out, nil
		}
	}

	processed, runErr := job.Scan(ctx, asOf)
	out.Processed = processed

	if r.ledger != nil {
		if err := r.ledger.Finish(context.WithoutCancel(ctx), name, asOf, processed, runErr); err != nil {
			r.log.Error("scan ledger finish failed", "job", name, "error", err)
		}
	}
	if runErr != nil {
		return out, fmt.Errorf("%s scan: %w", name, runErr)
	}

	r.log.ScanRun(name, asOf, processed, false, time.Since(started))
	return out, nil
}

// Jobs returns the registered job names.
func (r *Runner) Jobs() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	return names
}
