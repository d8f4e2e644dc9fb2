// Package users provides the user administration bounded context module.
package users

import (
	"time"

	"sales_leads_backend/internal/events"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/internal/users/handler"
	"sales_leads_backend/internal/users/repository"
	"sales_leads_backend/internal/users/service"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

// NewModule creates and initializes the users module with all its dependencies.
func NewModule(pool *pgxpool.Pool, acquireTimeout time.Duration, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool, acquireTimeout)
	svc := service.New(repo, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Repository is shared with the login flow.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts /me for every caller and user administration for admins.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/me", m.handler.Me)
	m.handler.RegisterAdminRoutes(ctx.Protected.Group("/users", httpkit.RequireAdmin()))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
