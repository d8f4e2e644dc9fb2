package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"sales_leads_backend/internal/leads/access"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	maxBodyBytes        = 1 << 20
)

// LeadService is the lead lifecycle as seen by HTTP.
type LeadService interface {
	Create(ctx context.Context, raw []byte) (repository.Lead, error)
	GetByID(ctx context.Context, id int64) (repository.Lead, error)
	Update(ctx context.Context, id int64, req transport.UpdateLeadRequest) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id, statusID int64) (repository.Lead, error)
	UpdateLikelihood(ctx context.Context, id, likelihoodID int64) (repository.Lead, error)
	Delete(ctx context.Context, id, actorID int64) error
}

// Visibility answers which leads a requester may see.
type Visibility interface {
	Requester(ctx context.Context, userID int64) (access.Requester, error)
	List(ctx context.Context, req access.Requester, policy access.Policy, f access.Filters) ([]repository.Lead, error)
	Recent(ctx context.Context, req access.Requester, policy access.Policy) ([]repository.Lead, error)
	CountsByStatus(ctx context.Context, req access.Requester, policy access.Policy, f access.Filters) (access.StatusCounts, error)
	SourceShares(ctx context.Context, req access.Requester, policy access.Policy, f access.Filters) ([]access.SourceShare, error)
	CanView(req access.Requester, policy access.Policy, lead repository.Lead) error
}

// Handler serves the lead endpoints.
type Handler struct {
	svc       LeadService
	followups FollowupService
	access    Visibility
	val       *validator.Validator
	maxUpload int64
}

// New creates the leads handler. maxUpload bounds followup documents in bytes.
func New(svc LeadService, followups FollowupService, visibility Visibility, val *validator.Validator, maxUpload int64) *Handler {
	return &Handler{svc: svc, followups: followups, access: visibility, val: val, maxUpload: maxUpload}
}

// RegisterRoutes mounts the lead routes on a protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/counts", h.Counts)
	rg.GET("/sources", h.Sources)
	rg.GET("/recent", h.Recent)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", httpkit.RequireAdmin(), h.Delete)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.PATCH("/:id/likelihood", h.UpdateLikelihood)
	rg.GET("/:id/followups", h.ListFollowups)
}

// Create stores a manually entered lead.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, "lead created", transport.ToLeadResponse(lead))
}

// List returns the leads visible under the requested view.
// GET /api/v1/leads?view=all|current_period|owned|owned_or_service
func (h *Handler) List(c *gin.Context) {
	req, policy, filters, ok := h.scopeFromQuery(c)
	if !ok {
		return
	}
	leads, err := h.access.List(c.Request.Context(), req, policy, filters)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LeadListResponse{View: string(policy), Items: transport.ToLeadResponses(leads), Total: len(leads)})
}

// Recent returns the newest visible leads.
// GET /api/v1/leads/recent
func (h *Handler) Recent(c *gin.Context) {
	req, policy, _, ok := h.scopeFromQuery(c)
	if !ok {
		return
	}
	leads, err := h.access.Recent(c.Request.Context(), req, policy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LeadListResponse{View: string(policy), Items: transport.ToLeadResponses(leads), Total: len(leads)})
}

// Counts returns visible leads per status.
// GET /api/v1/leads/counts
func (h *Handler) Counts(c *gin.Context) {
	req, policy, filters, ok := h.scopeFromQuery(c)
	if !ok {
		return
	}
	counts, err := h.access.CountsByStatus(c.Request.Context(), req, policy, filters)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := transport.CountsResponse{View: string(policy), Total: counts.Total, Statuses: make([]transport.StatusCountResponse, 0, len(counts.Statuses))}
	for _, s := range counts.Statuses {
		resp.Statuses = append(resp.Statuses, transport.StatusCountResponse{StatusID: s.ID, Status: s.Name, Count: s.Count})
	}
	httpkit.OK(c, resp)
}

// Sources returns each lead source's share of visible leads.
// GET /api/v1/leads/sources
func (h *Handler) Sources(c *gin.Context) {
	req, policy, filters, ok := h.scopeFromQuery(c)
	if !ok {
		return
	}
	shares, err := h.access.SourceShares(c.Request.Context(), req, policy, filters)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := make([]transport.SourceShareResponse, 0, len(shares))
	for _, s := range shares {
		resp = append(resp, transport.SourceShareResponse{SourceID: s.ID, Source: s.Name, Count: s.Count, Percent: s.Percent})
	}
	httpkit.OK(c, resp)
}

func (h *Handler) GetByID(c *gin.Context) {
	lead, ok := h.visibleLead(c)
	if !ok {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Update replaces every editable field of a visible lead.
// PUT /api/v1/leads/:id
func (h *Handler) Update(c *gin.Context) {
	lead, ok := h.visibleLead(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), lead.ID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(updated))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	lead, ok := h.visibleLead(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	updated, err := h.svc.UpdateStatus(c.Request.Context(), lead.ID, req.StatusID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(updated))
}

func (h *Handler) UpdateLikelihood(c *gin.Context) {
	lead, ok := h.visibleLead(c)
	if !ok {
		return
	}
	var req transport.UpdateLikelihoodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	updated, err := h.svc.UpdateLikelihood(c.Request.Context(), lead.ID, req.LikelihoodID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(updated))
}

// Delete removes a lead and its followups. Admin only.
// DELETE /api/v1/leads/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusOK, "lead deleted", nil)
}

// requester loads the caller as currently stored.
func (h *Handler) requester(c *gin.Context) (access.Requester, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return access.Requester{}, false
	}
	req, err := h.access.Requester(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return access.Requester{}, false
	}
	return req, true
}

// scopeFromQuery resolves the requester, the view and the date filters.
// Without a view the default table applies.
func (h *Handler) scopeFromQuery(c *gin.Context) (access.Requester, access.Policy, access.Filters, bool) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return access.Requester{}, "", access.Filters{}, false
	}
	req, ok := h.requester(c)
	if !ok {
		return access.Requester{}, "", access.Filters{}, false
	}
	policy := access.DefaultPolicy(req)
	if q.View != "" {
		p, err := access.ParsePolicy(q.View)
		if httpkit.HandleError(c, err) {
			return access.Requester{}, "", access.Filters{}, false
		}
		policy = p
	}
	return req, policy, q.Filters(), true
}

// detailPolicy is the widest view a requester holds over single leads:
// admins see every lead, scoped users their own and those of their services.
func detailPolicy(req access.Requester) access.Policy {
	if req.IsAdmin() {
		return access.PolicyAll
	}
	return access.PolicyOwnedOrServiceMatched
}

// visibleLead loads the lead named by :id and checks the caller may see it.
func (h *Handler) visibleLead(c *gin.Context) (repository.Lead, bool) {
	id, ok := parseID(c)
	if !ok {
		return repository.Lead{}, false
	}
	req, ok := h.requester(c)
	if !ok {
		return repository.Lead{}, false
	}
	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return repository.Lead{}, false
	}
	if err := h.access.CanView(req, detailPolicy(req), lead); httpkit.HandleError(c, err) {
		return repository.Lead{}, false
	}
	return lead, true
}

func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(dst); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return 0, false
	}
	return id, true
}
