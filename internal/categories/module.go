package categories

import (
	"sales_leads_backend/internal/categories/handler"
	"sales_leads_backend/internal/categories/repository"
	"sales_leads_backend/internal/categories/service"
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the categories bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	registry *Registry
}

// NewModule wires the options endpoints and loads the label registry.
// cache may be nil, in which case every request reads the store.
func NewModule(pool *pgxpool.Pool, cache service.Cache, log *logger.Logger) (*Module, error) {
	registry, err := Default()
	if err != nil {
		return nil, err
	}

	svc := service.New(repository.New(pool), cache, log)
	return &Module{
		handler:  handler.New(svc),
		registry: registry,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "categories"
}

// Registry returns the label registry shared with ingestion.
func (m *Module) Registry() *Registry {
	return m.registry
}

// RegisterRoutes mounts the options routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/options/:kind", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
