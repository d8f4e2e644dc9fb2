// Package webhook provides the public lead ingestion endpoints: the lead-ads
// webhook and the website form.
package webhook

import (
	"sales_leads_backend/internal/events"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/internal/ingest/source"
	"sales_leads_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(leads LeadIngester, social *source.SocialAdapter, website *source.WebsiteAdapter, verifyToken string, eventBus events.Bus, log *logger.Logger) *Module {
	service := NewService(leads, social, website, eventBus, log)
	return &Module{handler: NewHandler(service, verifyToken)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the public, rate-limited ingestion routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/webhook", m.handler.HandleVerify)
	ctx.Public.POST("/webhook", m.handler.HandleEnvelope)
	ctx.Public.POST("/webhook/leads", m.handler.HandleFormLead)
	ctx.Public.POST("/forms/website", m.handler.HandleWebsiteForm)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
