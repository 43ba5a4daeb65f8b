// Package handlers implements the HTTP side-car endpoints.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps err to its HTTP status.  Server-side failures are
// masked; their detail goes to the log only.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	msg := err.Error()
	if status >= 500 {
		msg = errors.DefaultMessageForCode(code)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      string(code),
		Message:   msg,
		RequestID: middleware.GetRequestID(c),
	})
}
