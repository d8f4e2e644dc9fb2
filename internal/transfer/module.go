package transfer

import (
	"context"
	"net/http"

	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Runner is the operation served by the endpoint and the scheduled task.
type Runner interface {
	TransferPending(ctx context.Context) (Result, error)
}

// Module exposes bulk transfer over HTTP.
type Module struct {
	runner Runner
}

func NewModule(runner Runner) *Module {
	return &Module{runner: runner}
}

func (m *Module) Name() string {
	return "transfer"
}

// RegisterRoutes mounts POST /api/v1/bulk-transfer for admins.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/bulk-transfer", httpkit.RequireAdmin(), m.transfer)
}

func (m *Module) transfer(c *gin.Context) {
	result, err := m.runner.TransferPending(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	msg := "pending entries transferred"
	if result.Transferred == 0 {
		msg = "no pending entries"
	}
	httpkit.JSON(c, http.StatusOK, msg, result)
}

var _ apphttp.Module = (*Module)(nil)
