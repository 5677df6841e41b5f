package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/complaints"
	"labor_pipeline_backend/internal/email"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/notification"
	"labor_pipeline_backend/internal/remittances"
	"labor_pipeline_backend/internal/scheduler"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()
	recorder := audit.NewService(audit.NewRepository(pool), log)

	// Worker-side scan wiring (no HTTP handlers required).
	complaintsModule := complaints.NewModule(pool, eventBus, recorder, cfg, val, log)
	remittancesModule := remittances.NewModule(pool, eventBus, recorder, cfg, val, log)

	jobs := []scheduler.Job{
		scheduler.ComplaintSLAJob(complaintsModule.Service()),
		scheduler.RemittanceComplianceJob(remittancesModule.Service()),
	}
	ledger := scheduler.NewPGLedger(pool)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; running scans in-process")

		notificationModule := notification.New(pool, notification.InlineEmail{Sender: sender}, cfg, log)
		notificationModule.RegisterHandlers(eventBus)

		runner := scheduler.NewRunner(scheduler.NewLocalLock(), ledger, log, jobs...)
		inProcess, err := scheduler.NewInProcess(cfg, runner, log)
		if err != nil {
			log.Error("failed to initialize in-process scheduler", "error", err)
			panic("failed to initialize in-process scheduler: " + err.Error())
		}
		g.Go(func() error { return inProcess.Run(gctx) })
	} else {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize task queue client", "error", err)
			panic("failed to initialize task queue client: " + err.Error())
		}
		defer func() { _ = client.Close() }()

		notificationModule := notification.New(pool, client, cfg, log)
		notificationModule.RegisterHandlers(eventBus)

		rdb, err := scheduler.NewRedisClient(cfg)
		if err != nil {
			log.Error("failed to initialize redis client", "error", err)
			panic("failed to initialize redis client: " + err.Error())
		}
		defer func() { _ = rdb.Close() }()

		runner := scheduler.NewRunner(scheduler.NewRedisLock(rdb), ledger, log, jobs...)

		worker, err := scheduler.NewWorker(cfg, sender, runner, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		periodic, err := scheduler.NewPeriodic(cfg, log)
		if err != nil {
			log.Error("failed to initialize periodic scheduler", "error", err)
			panic("failed to initialize periodic scheduler: " + err.Error())
		}

		g.Go(func() error { return worker.Run(gctx) })
		g.Go(func() error { return periodic.Run(gctx) })
	}

	runErr := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := eventBus.Drain(drainCtx); err != nil {
		log.Warn("event handlers still running at shutdown", "error", err)
	}
	cancel()

	if runErr != nil {
		log.Error("scheduler stopped", "error", runErr)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
