package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"labor_pipeline_backend/internal/email"
	"labor_pipeline_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const emailMaxRetry = 5

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAlertEmail hands an alert email to the worker. Delivery is retried
// by asynq so a flaky SMTP relay never blocks the request that raised it.
func (c *Client) EnqueueAlertEmail(ctx context.Context, alert email.Alert) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAlertEmailTask(AlertEmailPayload{Alert: alert})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(emailMaxRetry))
	return err
}

// EnqueueComplaintSLAScan requests a breach scan as of asOf.
func (c *Client) EnqueueComplaintSLAScan(ctx context.Context, asOf time.Time) error {
	return c.enqueueScan(ctx, TaskComplaintSLAScan, asOf)
}

// EnqueueRemittanceComplianceScan requests a remittance compliance scan as of asOf.
func (c *Client) EnqueueRemittanceComplianceScan(ctx context.Context, asOf time.Time) error {
	return c.enqueueScan(ctx, TaskRemittanceComplianceScan, asOf)
}

func (c *Client) enqueueScan(ctx context.Context, taskType string, asOf time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewScanTask(taskType, ScanPayload{AsOf: asOf.UTC()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(1))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redisOptions(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

func redisOptions(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewRedisClient builds a go-redis client from the scheduler settings. It
// backs the scan lock.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	opt, err := redisOptions(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
