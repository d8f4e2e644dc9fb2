package handler

import (
	"context"
	"net/http"
	"time"

	"sales_leads_backend/internal/auth/service"
	"sales_leads_backend/internal/auth/transport"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Authenticator is the auth service as seen by the handler.
type Authenticator interface {
	Login(ctx context.Context, login, password string) (service.Session, error)
}

type Handler struct {
	svc Authenticator
	val *validator.Validator
}

func New(svc Authenticator, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}

// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Login, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusOK, "login successful", transport.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt.UTC().Format(time.RFC3339),
		UserID:      session.UserID,
		RoleID:      session.RoleID,
	})
}
