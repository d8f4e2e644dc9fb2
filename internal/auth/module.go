// Package auth provides the authentication bounded context module.
package auth

import (
	"sales_leads_backend/internal/auth/handler"
	"sales_leads_backend/internal/auth/service"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(users service.UserLookup, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(users, cfg, clock.System{}, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
