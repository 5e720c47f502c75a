package utils

import (
	"errors"
	"net/http"

	"docchat-service/internal/logger"
	"docchat-service/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithServiceError maps a service error onto the response envelope.
// Server-side failures are logged and reported without their cause.
func RespondWithServiceError(c *gin.Context, err error) {
	var upstream *models.UpstreamError

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		RespondWithBadRequest(c, err.Error(), nil)
	case errors.Is(err, models.ErrNotLoaded):
		RespondWithError(c, http.StatusBadRequest, "not_loaded",
			"Documents are not loaded for this company. Call /load_documents first.", nil)
	case errors.Is(err, models.ErrNotFound):
		RespondWithNotFound(c, err.Error())
	case errors.As(err, &upstream):
		logger.Error("Upstream call failed", "provider", upstream.Provider, "op", upstream.Op, "error", err)
		RespondWithError(c, http.StatusBadGateway, "upstream_error",
			"The model provider failed to respond", gin.H{"provider": upstream.Provider})
	case models.IsStorage(err):
		logger.Error("Storage failure", "error", err)
		RespondWithError(c, http.StatusInternalServerError, "storage_error", "Failed to read or write documents", nil)
	default:
		logger.Error("Request failed", "error", err)
		RespondWithInternalError(c, "Internal server error", nil)
	}
}
