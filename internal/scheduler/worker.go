package scheduler

import (
	"context"
	"fmt"

	"labor_pipeline_backend/internal/email"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender email.Sender
	runner *Runner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sender email.Sender, runner *Runner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server: server,
		sender: sender,
		runner: runner,
		log:    log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAlertEmail, w.handleAlertEmail)
	mux.HandleFunc(TaskComplaintSLAScan, w.handleScan(JobComplaintSLA))
	mux.HandleFunc(TaskRemittanceComplianceScan, w.handleScan(JobRemittanceCompliance))
	return mux
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start scheduler worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

func (w *Worker) handleAlertEmail(ctx context.Context, task *asynq.Task) error {
	if w.sender == nil {
		return nil
	}

	payload, err := ParseAlertEmailPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.Alert.To == "" {
		return nil
	}

	return w.sender.SendAlert(ctx, payload.Alert)
}

func (w *Worker) handleScan(job string) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := ParseScanPayload(task)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		_, err = w.runner.Run(ctx, job, payload.AsOf)
		return err
	}
}
