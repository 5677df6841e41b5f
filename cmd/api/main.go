package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labor_pipeline_backend/internal/adapters"
	"labor_pipeline_backend/internal/audit"
	"labor_pipeline_backend/internal/candidates"
	"labor_pipeline_backend/internal/complaints"
	"labor_pipeline_backend/internal/departures"
	"labor_pipeline_backend/internal/email"
	"labor_pipeline_backend/internal/events"
	"labor_pipeline_backend/internal/evidence"
	apphttp "labor_pipeline_backend/internal/http"
	"labor_pipeline_backend/internal/http/router"
	"labor_pipeline_backend/internal/notification"
	"labor_pipeline_backend/internal/remittances"
	"labor_pipeline_backend/internal/scheduler"
	"labor_pipeline_backend/internal/search"
	"labor_pipeline_backend/internal/training"
	"labor_pipeline_backend/internal/visa"
	"labor_pipeline_backend/migrations"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"
	"labor_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	emails, closeEmails := initEmailQueue(cfg, log)
	if closeEmails != nil {
		defer closeEmails()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	recorder := audit.NewService(audit.NewRepository(pool), log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	trainingModule := training.NewModule(pool, eventBus, recorder, cfg, val, log)
	visaModule := visa.NewModule(pool, eventBus, recorder, val, log)
	departuresModule := departures.NewModule(pool, adapters.NewDepartureVisaReader(visaModule.Service()), eventBus, recorder, val, log)

	// Anti-Corruption Layer: the aggregator reads tracker state through
	// adapters instead of importing the tracker services.
	guards := adapters.NewCandidateGuards(trainingModule.Service(), visaModule.Service(), departuresModule.Service())
	candidatesModule := candidates.NewModule(pool, guards, eventBus, recorder, val, log)
	candidatesModule.RegisterHandlers(eventBus)

	complaintsModule := complaints.NewModule(pool, eventBus, recorder, cfg, val, log)
	remittancesModule := remittances.NewModule(pool, eventBus, recorder, cfg, val, log)

	// Notification module subscribes to domain events
	notificationModule := notification.New(pool, emails, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	modules := []apphttp.Module{
		candidatesModule,
		trainingModule,
		visaModule,
		departuresModule,
		complaintsModule,
		remittancesModule,
		notificationModule,
		search.NewModule(pool, val),
	}

	if cfg.IsMinIOEnabled() {
		var evidenceModule *evidence.Module
		if err := withRetry(ctx, log, "ensure evidence bucket", 5, 2*time.Second, func() error {
			m, err := evidence.NewModule(ctx, cfg, recorder, log)
			if err != nil {
				return err
			}
			evidenceModule = m
			return nil
		}); err != nil {
			log.Error("failed to initialize evidence storage", "error", err)
			panic("failed to initialize evidence storage: " + err.Error())
		}
		modules = append(modules, evidenceModule)
		log.Info("evidence storage initialized", "bucket", cfg.GetMinioBucketEvidence())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; evidence uploads disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  db.NewPoolAdapter(pool),
		Modules: modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		if err := eventBus.Drain(shutdownCtx); err != nil {
			log.Warn("event handlers still running at shutdown", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initEmailQueue hands alert emails to the asynq worker when Redis is
// configured and sends them inline otherwise.
func initEmailQueue(cfg *config.Config, log *logger.Logger) (notification.EmailQueue, func()) {
	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err == nil {
			return client, func() { _ = client.Close() }
		}
		log.Error("failed to initialize task queue client; sending email inline", "error", err)
	} else {
		log.Warn("REDIS_URL not configured; alert emails are sent inline")
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	return notification.InlineEmail{Sender: sender}, nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
