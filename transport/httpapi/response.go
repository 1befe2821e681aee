package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-portfolio/command"
)

// APIError is the error payload returned by every endpoint.
type APIError struct {
	Message  string         `json:"message"`
	Code     string         `json:"code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func (h *Handler) respondError(c *gin.Context, err error) {
	rich := command.ToServiceError(err)
	status := rich.Code
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	message := rich.Message
	if status >= http.StatusInternalServerError {
		h.log.Error("portfolio request failed", err, "path", c.FullPath(), "status", status)
		message = http.StatusText(status)
	} else if message == "" {
		message = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message:  message,
			Code:     rich.TextCode,
			Metadata: rich.Metadata,
		},
	})
}
