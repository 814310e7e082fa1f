// internal/api/response_helpers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIResponse is the uniform response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ResponseHelper builds the envelope consistently across handlers.
type ResponseHelper struct{}

// NewResponseHelper creates a response helper.
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success sends a 200 with data.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(http.StatusOK, response)
}

// BadRequest sends a 400 with an error message.
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	rh.errorResponse(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 with an error message.
func (rh *ResponseHelper) NotFound(c *gin.Context, message string) {
	rh.errorResponse(c, http.StatusNotFound, message)
}

// InternalError sends a 500 with an error message.
func (rh *ResponseHelper) InternalError(c *gin.Context, message string) {
	rh.errorResponse(c, http.StatusInternalServerError, message)
}

func (rh *ResponseHelper) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, &APIResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return ""
}

// RequestIDMiddleware assigns each request a UUID for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
