package scheduler

import (
	"context"
	"fmt"

	"sales_leads_backend/internal/transfer"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// PartnerNotifier posts one stored lead to the partner endpoint.
type PartnerNotifier interface {
	NotifyPartner(ctx context.Context, leadID int64) error
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	transfers transfer.Runner
	partner   PartnerNotifier
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, transfers transfer.Runner, partner PartnerNotifier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		transfers: transfers,
		partner:   partner,
		log:       log,
	}
	w.mux.HandleFunc(TaskTransferPending, w.handleTransferPending)
	w.mux.HandleFunc(TaskPartnerLead, w.handlePartnerLead)

	if spec := cfg.GetTransferCron(); spec != "" {
		w.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: clock.Zone})
		if _, err := w.scheduler.Register(spec, NewTransferPendingTask(), asynq.Queue(queue), asynq.MaxRetry(0)); err != nil {
			return nil, fmt.Errorf("register transfer cron %q: %w", spec, err)
		}
	}

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.log.Error("transfer cron not started", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleTransferPending(ctx context.Context, _ *asynq.Task) error {
	result, err := w.transfers.TransferPending(ctx)
	if err != nil {
		return err
	}
	w.log.Info("scheduled bulk transfer complete", "transferred", result.Transferred)
	return nil
}

func (w *Worker) handlePartnerLead(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePartnerLeadPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.LeadID <= 0 {
		return fmt.Errorf("%w: lead id %d", asynq.SkipRetry, payload.LeadID)
	}
	return w.partner.NotifyPartner(ctx, payload.LeadID)
}
