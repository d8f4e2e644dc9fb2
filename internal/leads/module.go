// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"time"

	"sales_leads_backend/internal/adapters/storage"
	"sales_leads_backend/internal/events"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/internal/leads/access"
	"sales_leads_backend/internal/leads/handler"
	"sales_leads_backend/internal/leads/management"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is what the leads module reads from the application config.
type Config interface {
	GetDBAcquireTimeout() time.Duration
	GetMinIOMaxFileSize() int64
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	management *management.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// docs may be nil when object storage is not configured.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	val *validator.Validator,
	assigner management.Assigner,
	direct *source.DirectAdapter,
	docs storage.DocumentStore,
	cfg Config,
	log *logger.Logger,
) *Module {
	clk := clock.System{}
	repo := repository.New(pool, clk, cfg.GetDBAcquireTimeout())
	store := access.NewPostgresStore(pool, cfg.GetDBAcquireTimeout())

	mgmtSvc := management.New(repo, assigner, direct, eventBus, log)
	followupSvc := management.NewFollowupService(repo, docs, clk, log)
	engine := access.NewEngine(store, store, clk)

	return &Module{
		handler:    handler.New(mgmtSvc, followupSvc, engine, val, cfg.GetMinIOMaxFileSize()),
		repo:       repo,
		management: mgmtSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service used by the ingestion endpoints.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Repository exposes the batch inserter used by bulk transfer.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterFollowupRoutes(ctx.Protected.Group("/followups"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
