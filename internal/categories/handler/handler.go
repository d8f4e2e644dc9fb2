package handler

import (
	"sales_leads_backend/internal/categories/repository"
	"sales_leads_backend/internal/categories/service"
	"sales_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves category option lists.
type Handler struct {
	svc *service.Service
}

// New creates a new options handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// List returns one category table.
// GET /api/v1/options/:kind
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), repository.Kind(c.Param("kind")))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, items)
}
