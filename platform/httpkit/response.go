// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"sales_leads_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Envelope is the single response shape used by every endpoint.
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a successful envelope with the given status code.
func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Status: true, Message: message, Data: data})
}

// OK sends a 200 envelope carrying data.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, "", data)
}

// Error sends a failed envelope.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, Envelope{Status: false, Message: message, Details: details})
}

// Abort sends a failed envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Status: false, Message: message})
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values use their Kind; anything else is a 500 with a
// generic message. Returns true if an error was handled.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
			Error(c, status, "internal server error", nil)
			return true
		}
		Error(c, status, domainErr.Message, domainErr.Details)
		return true
	}

	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, "internal server error", nil)
	return true
}
