package handler

import (
	"context"
	"net/http"
	"strconv"

	"sales_leads_backend/internal/users/transport"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// UserService is the users service as seen by the handler.
type UserService interface {
	Create(ctx context.Context, req transport.CreateUserRequest) (transport.UserResponse, error)
	Update(ctx context.Context, id int64, req transport.UpdateUserRequest) (transport.UserResponse, error)
	Deactivate(ctx context.Context, actorID, id int64) error
	Get(ctx context.Context, id int64) (transport.UserResponse, error)
	List(ctx context.Context) ([]transport.UserResponse, error)
	Permissions(ctx context.Context, id int64) (transport.PermissionsResponse, error)
	Me(ctx context.Context, id int64) (transport.UserResponse, error)
}

type Handler struct {
	svc UserService
	val *validator.Validator
}

func New(svc UserService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes mounts user administration on an admin-only group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Deactivate)
	rg.GET("/:id/permissions", h.Permissions)
}

// GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	user, err := h.svc.Me(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, user)
}

func (h *Handler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, users)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, user)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, "user created", user)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusOK, "user updated", user)
}

// Deactivate soft-deletes the user.
// DELETE /api/v1/users/:id
func (h *Handler) Deactivate(c *gin.Context) {
	actor := httpkit.MustGetIdentity(c)
	if actor == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Deactivate(c.Request.Context(), actor.UserID(), id)) {
		return
	}
	httpkit.JSON(c, http.StatusOK, "user deactivated", gin.H{"id": id})
}

func (h *Handler) Permissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	perms, err := h.svc.Permissions(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, perms)
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid user id", nil)
		return 0, false
	}
	return id, true
}
