// Package dto defines the request and response bodies of the HTTP API.
package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse creates a success envelope.
func SuccessResponse(message string, data interface{}) *APIResponse {
	return &APIResponse{Success: true, Message: message, Data: data}
}

// ErrorResponse creates a failure envelope. Errors that are not AppErrors are reported as
// internal errors without their text.
func ErrorResponse(err error) *APIResponse {
	appErr := errors.FromError(err)
	return &APIResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
}

// SendSuccess writes a success envelope with status.
func SendSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse(message, data))
}

// SendError writes err as a failure envelope with the status it maps to and aborts the chain.
// The error is also attached to the context for the logging middleware.
func SendError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatus(err), ErrorResponse(err))
}
