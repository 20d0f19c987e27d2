// Package response defines the uniform envelope every endpoint answers with.
//
// Success:  {"success": true, "data": ...}
// Failure:  {"success": false, "message": "...", "request_id": "..."}
//
// Authorization-class failures use 401 so remote domain servers re-run
// their identity negotiation instead of treating the domain as gone.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"metadirectory/src/core/domain"
)

// Envelope is the body of every response.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Result is a transport-independent outcome: what the handler decided,
// before it is written.
type Result struct {
	Status  int
	Success bool
	Data    any
	Message string
	// Extra is merged into the top level of the body for legacy clients.
	Extra gin.H
}

// Write sends res.
func Write(c *gin.Context, res Result, requestID string) {
	if len(res.Extra) == 0 {
		c.JSON(res.Status, Envelope{
			Success:   res.Success,
			Data:      res.Data,
			Message:   res.Message,
			RequestID: requestID,
		})
		return
	}

	body := gin.H{"success": res.Success}
	if res.Data != nil {
		body["data"] = res.Data
	}
	if res.Message != "" {
		body["message"] = res.Message
	}
	if requestID != "" {
		body["request_id"] = requestID
	}
	for k, v := range res.Extra {
		if _, taken := body[k]; !taken {
			body[k] = v
		}
	}
	c.JSON(res.Status, body)
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	Write(c, Result{Status: http.StatusOK, Success: true, Data: data}, "")
}

// Fail sends a failure with the given status and message.
func Fail(c *gin.Context, status int, message, requestID string) {
	Write(c, Result{Status: status, Message: message}, requestID)
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message, requestID string) {
	Fail(c, http.StatusBadRequest, message, requestID)
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message, requestID string) {
	Fail(c, http.StatusNotFound, message, requestID)
}

// InternalError sends a 500 response without internal details.
func InternalError(c *gin.Context, requestID string) {
	Fail(c, http.StatusInternalServerError, "An unexpected error occurred", requestID)
}

// FromError maps an error to its failure Result.
func FromError(err error) Result {
	switch {
	case domain.IsUnauthorized(err):
		return Result{Status: http.StatusUnauthorized, Message: domain.PublicMessage(err)}
	case domain.IsBadlyFormed(err):
		return Result{Status: http.StatusBadRequest, Message: domain.MsgBadlyFormed}
	case domain.IsValidationError(err):
		return Result{Status: http.StatusBadRequest, Message: domain.PublicMessage(err)}
	case domain.IsNotFound(err):
		return Result{Status: http.StatusNotFound, Message: domain.PublicMessage(err)}
	default:
		return Result{Status: http.StatusInternalServerError, Message: "An unexpected error occurred"}
	}
}

// FromDomainError converts an error to the matching failure response.
func FromDomainError(c *gin.Context, err error, requestID string) {
	Write(c, FromError(err), requestID)
}
