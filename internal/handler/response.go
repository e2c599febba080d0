package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride/internal/repository"
	"groupride/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: verr.Messages})
		return
	}

	code := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.JSON(code, ErrorResponse{Error: msg})
}

// respondBadRequest rejects a malformed request body or query.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNotParticipant):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidCommentID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrNotInSeries):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrRideFull),
		errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrRideArchived),
		errors.Is(err, service.ErrCapacityBelowParticipants):
		return http.StatusConflict

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, service.ErrNearbySearchUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
