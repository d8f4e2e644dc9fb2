package handler

import (
	"context"
	"errors"
	"net/http"

	"sales_leads_backend/internal/adapters/storage"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// documentField is the multipart part carrying an optional followup document.
const documentField = "document"

// FollowupService records and lists followups.
type FollowupService interface {
	Create(ctx context.Context, actorID int64, form transport.CreateFollowupForm, doc *storage.Document) (repository.Followup, error)
	ListForLead(ctx context.Context, leadID int64) (repository.Lead, []transport.FollowupResponse, error)
	Today(ctx context.Context, userID int64) (string, []transport.FollowupResponse, error)
}

// RegisterFollowupRoutes mounts /followups on a protected group.
func (h *Handler) RegisterFollowupRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateFollowup)
	rg.GET("/today", h.TodayFollowups)
}

// CreateFollowup stores a followup on a visible lead.
// POST /api/v1/followups (multipart/form-data)
func (h *Handler) CreateFollowup(c *gin.Context) {
	var form transport.CreateFollowupForm
	if err := c.ShouldBind(&form); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(form); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	req, ok := h.requester(c)
	if !ok {
		return
	}
	lead, err := h.svc.GetByID(c.Request.Context(), form.LeadID)
	if httpkit.HandleError(c, err) {
		return
	}
	if err := h.access.CanView(req, detailPolicy(req), lead); httpkit.HandleError(c, err) {
		return
	}

	doc, closeDoc, ok := h.document(c)
	if !ok {
		return
	}
	defer closeDoc()

	f, err := h.followups.Create(c.Request.Context(), req.UserID, form, doc)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, "followup created", transport.ToFollowupResponse(f))
}

// ListFollowups returns a visible lead with its followups.
// GET /api/v1/leads/:id/followups
func (h *Handler) ListFollowups(c *gin.Context) {
	lead, ok := h.visibleLead(c)
	if !ok {
		return
	}
	_, items, err := h.followups.ListForLead(c.Request.Context(), lead.ID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LeadFollowupsResponse{Lead: transport.ToLeadResponse(lead), Followups: items})
}

// TodayFollowups lists the caller's followups for the current day.
// GET /api/v1/followups/today
func (h *Handler) TodayFollowups(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	day, items, err := h.followups.Today(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.TodayFollowupsResponse{Day: day, Total: len(items), Followups: items})
}

// document opens the optional upload. The returned func closes it.
func (h *Handler) document(c *gin.Context) (*storage.Document, func(), bool) {
	header, err := c.FormFile(documentField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, true
	}
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return nil, nil, false
	}
	if err := storage.ValidateFileSize(header.Size, h.maxUpload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid document", err.Error())
		return nil, nil, false
	}

	file, err := header.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return nil, nil, false
	}
	doc := &storage.Document{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return doc, func() { _ = file.Close() }, true
}
