package webhook

import (
	"crypto/subtle"
	"io"
	"net/http"

	"sales_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	maxPayloadBytes   = 1 << 20
	modeSubscribe     = "subscribe"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service     *Service
	verifyToken string
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, verifyToken string) *Handler {
	return &Handler{service: service, verifyToken: verifyToken}
}

// HandleVerify answers the subscription handshake by echoing hub.challenge.
// GET /api/v1/webhook
func (h *Handler) HandleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode != modeSubscribe || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// HandleEnvelope ingests a lead-ads notification.
// POST /api/v1/webhook
func (h *Handler) HandleEnvelope(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	leads, err := h.service.ProcessEnvelope(c.Request.Context(), raw)
	if httpkit.HandleError(c, err) {
		return
	}
	ids := make([]int64, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.ID)
	}
	httpkit.JSON(c, http.StatusOK, "success", gin.H{"leadIds": ids})
}

// HandleFormLead ingests one flat lead from a registered form.
// POST /api/v1/webhook/leads
func (h *Handler) HandleFormLead(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	lead, err := h.service.ProcessFormLead(c.Request.Context(), raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, "lead created", gin.H{"id": lead.ID})
}

// HandleWebsiteForm ingests the public website form.
// POST /api/v1/forms/website
func (h *Handler) HandleWebsiteForm(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	lead, err := h.service.ProcessWebsiteForm(c.Request.Context(), raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, "form data saved successfully", gin.H{"id": lead.ID})
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return nil, false
	}
	return raw, true
}
