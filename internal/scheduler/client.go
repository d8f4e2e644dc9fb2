package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"sales_leads_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	partnerLeadMaxRetry = 5
	partnerLeadTimeout  = 30 * time.Second
)

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

// EnqueuePartnerLead queues the partner post for one stored lead.
func (c *Client) EnqueuePartnerLead(ctx context.Context, leadID int64) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("job queue not configured")
	}

	task, err := NewPartnerLeadTask(PartnerLeadPayload{LeadID: leadID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(partnerLeadMaxRetry),
		asynq.Timeout(partnerLeadTimeout),
	)
	return err
}

// EnqueueTransfer queues one bulk transfer run.
func (c *Client) EnqueueTransfer(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("job queue not configured")
	}
	_, err := c.client.EnqueueContext(ctx, NewTransferPendingTask(), asynq.Queue(c.queue), asynq.MaxRetry(0))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
