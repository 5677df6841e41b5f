package scheduler

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

const (
	JobComplaintSLA         = "complaint_sla"
	JobRemittanceCompliance = "remittance_compliance"
)

// schedule pairs a job with its task type and cron expression.
type schedule struct {
	job      string
	taskType string
	spec     string
}

func schedules(cfg config.SchedulerConfig) []schedule {
	return []schedule{
		{job: JobComplaintSLA, taskType: TaskComplaintSLAScan, spec: cfg.GetSLAScanSchedule()},
		{job: JobRemittanceCompliance, taskType: TaskRemittanceComplianceScan, spec: cfg.GetRemittanceScanSchedule()},
	}
}

// Periodic enqueues scan tasks on their cron schedules through asynq, so
// any worker connected to the queue may pick them up.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	queue := queueName(cfg)
	for _, sc := range schedules(cfg) {
		task, err := NewScanTask(sc.taskType, ScanPayload{})
		if err != nil {
			return nil, err
		}
		if _, err := s.Register(sc.spec, task, asynq.Queue(queue), asynq.MaxRetry(1)); err != nil {
			return nil, fmt.Errorf("register %s schedule %q: %w", sc.job, sc.spec, err)
		}
		log.Info("scan scheduled", "job", sc.job, "schedule", sc.spec)
	}

	return &Periodic{scheduler: s, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start periodic scheduler: %w", err)
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}

// InProcess runs the scans directly on a robfig/cron clock. It is the
// fallback when no Redis is configured.
type InProcess struct {
	cron   *cron.Cron
	runner *Runner
	log    *logger.Logger
	ctx    context.Context
}

func NewInProcess(cfg config.SchedulerConfig, runner *Runner, log *logger.Logger) (*InProcess, error) {
	p := &InProcess{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: runner,
		log:    log,
		ctx:    context.Background(),
	}
	for _, sc := range schedules(cfg) {
		job := sc.job
		if _, err := p.cron.AddFunc(sc.spec, func() { p.fire(job) }); err != nil {
			return nil, fmt.Errorf("register %s schedule %q: %w", job, sc.spec, err)
		}
		log.Info("scan scheduled in-process", "job", job, "schedule", sc.spec)
	}
	return p, nil
}

func (p *InProcess) fire(job string) {
	if _, err := p.runner.Run(p.ctx, job, time.Time{}); err != nil {
		p.log.Error("scan failed", "job", job, "error", err)
	}
}

func (p *InProcess) Run(ctx context.Context) error {
	p.ctx = ctx
	p.cron.Start()
	<-ctx.Done()
	<-p.cron.Stop().Done()
	return nil
}
