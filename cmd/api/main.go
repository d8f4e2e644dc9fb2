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

	"sales_leads_backend/internal/adapters/storage"
	"sales_leads_backend/internal/assignment"
	"sales_leads_backend/internal/auth"
	"sales_leads_backend/internal/categories"
	catservice "sales_leads_backend/internal/categories/service"
	"sales_leads_backend/internal/email"
	"sales_leads_backend/internal/events"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/internal/http/router"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads"
	"sales_leads_backend/internal/notification"
	"sales_leads_backend/internal/notification/partner"
	"sales_leads_backend/internal/scheduler"
	"sales_leads_backend/internal/transfer"
	"sales_leads_backend/internal/users"
	"sales_leads_backend/internal/webhook"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/db"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	transferParallelism = 8
	shutdownTimeout     = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

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

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var optionsCache catservice.Cache
	if cfg.GetRedisURL() != "" {
		redisCache, err := catservice.NewRedisCacheFromURL(cfg.GetRedisURL(), cfg.GetOptionsCacheTTL())
		if err != nil {
			log.Warn("options cache disabled", "error", err)
		} else {
			optionsCache = redisCache
		}
	}

	// Followup documents are optional; without MinIO uploads are rejected.
	var docs storage.DocumentStore
	if cfg.IsMinIOEnabled() {
		store, err := storage.NewMinIOStore(cfg)
		if err != nil {
			log.Error("failed to initialize storage", "error", err)
			panic("failed to initialize storage: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure followup bucket", 5, 2*time.Second, func() error {
			return store.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", store.Bucket())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		docs = store
		log.Info("storage initialized", "bucket", store.Bucket())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	categoriesModule, err := categories.NewModule(pool, optionsCache, log)
	if err != nil {
		log.Error("failed to load category vocabulary", "error", err)
		panic("failed to load category vocabulary: " + err.Error())
	}

	forms, err := source.DefaultForms()
	if err != nil {
		log.Error("failed to load form dialects", "error", err)
		panic("failed to load form dialects: " + err.Error())
	}
	deps := source.Deps{Registry: categoriesModule.Registry(), Validator: val, Log: log}

	resolver := assignment.New(assignment.NewRepository(pool), cfg.GetDefaultOwnerID(), cfg.GetDBAcquireTimeout(), log)
	if err := resolver.VerifyDefaultOwner(ctx); err != nil {
		log.Warn("default owner is not an active user", "ownerId", cfg.GetDefaultOwnerID(), "error", err)
	}

	leadsModule := leads.NewModule(pool, eventBus, val, resolver, source.NewDirectAdapter(deps), docs, cfg, log)

	coordinator := transfer.New(
		transfer.NewPostgresStore(pool, leadsModule.Repository(), cfg.GetDBAcquireTimeout()),
		source.NewStagingAdapter(deps),
		resolver,
		eventBus,
		clock.System{},
		log,
		transferParallelism,
	)

	webhookModule := webhook.NewModule(
		leadsModule.ManagementService(),
		source.NewSocialAdapter(deps, forms),
		source.NewWebsiteAdapter(deps),
		cfg.GetWebhookVerifyToken(),
		eventBus,
		log,
	)
	usersModule := users.NewModule(pool, cfg.GetDBAcquireTimeout(), eventBus, val, log)
	authModule := auth.NewModule(usersModule.Repository(), cfg, val, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(
		leadsModule.Repository(),
		usersModule.Repository(),
		email.NewSender(cfg),
		partner.NewClient(cfg),
		categoriesModule.Registry(),
		log,
	)
	notificationModule.RegisterHandlers(eventBus)

	if cfg.GetRedisURL() != "" {
		jobs, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Warn("job queue disabled, partner posts run inline", "error", err)
		} else {
			defer func() { _ = jobs.Close() }()
			notificationModule.SetPartnerQueue(jobs)
		}
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			usersModule,
			categoriesModule,
			leadsModule,
			webhookModule,
			transfer.NewModule(coordinator),
		},
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
