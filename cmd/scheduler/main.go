package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales_leads_backend/internal/assignment"
	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/email"
	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/ingest/source"
	leadrepo "sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/notification"
	"sales_leads_backend/internal/notification/partner"
	"sales_leads_backend/internal/scheduler"
	"sales_leads_backend/internal/transfer"
	userrepo "sales_leads_backend/internal/users/repository"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/db"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const transferParallelism = 8

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "transferCron", cfg.GetTransferCron())

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
	defer eventBus.Wait()

	registry, err := categories.Default()
	if err != nil {
		log.Error("failed to load category vocabulary", "error", err)
		panic("failed to load category vocabulary: " + err.Error())
	}

	leads := leadrepo.New(pool, clock.System{}, cfg.GetDBAcquireTimeout())
	users := userrepo.New(pool, cfg.GetDBAcquireTimeout())

	// Worker-side notification wiring: transfer digests and queued partner posts.
	notificationModule := notification.New(leads, users, email.NewSender(cfg), partner.NewClient(cfg), registry, log)
	notificationModule.RegisterHandlers(eventBus)

	resolver := assignment.New(assignment.NewRepository(pool), cfg.GetDefaultOwnerID(), cfg.GetDBAcquireTimeout(), log)
	coordinator := transfer.New(
		transfer.NewPostgresStore(pool, leads, cfg.GetDBAcquireTimeout()),
		source.NewStagingAdapter(source.Deps{Registry: registry, Validator: validator.New(), Log: log}),
		resolver,
		eventBus,
		clock.System{},
		log,
		transferParallelism,
	)

	worker, err := scheduler.NewWorker(cfg, coordinator, notificationModule, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
