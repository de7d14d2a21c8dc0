package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"facilita/internal/domain"
	"facilita/internal/middleware"
	"facilita/internal/repository"
	"facilita/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidServiceID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidDescription),
		errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidExternalID),
		errors.Is(err, service.ErrCancelReasonRequired):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrProviderBusy),
		errors.Is(err, service.ErrAlreadyRefused),
		errors.Is(err, service.ErrServiceNotCancellable),
		errors.Is(err, service.ErrServiceNotDeletable),
		errors.Is(err, service.ErrWaypointLocked),
		errors.Is(err, service.ErrServiceUnavailable),
		errors.Is(err, repository.ErrStatusConflict),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotAssigned),
		errors.Is(err, service.ErrWrongRole):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actorID returns the authenticated caller's user id.
func actorID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// actorRole returns the authenticated caller's role.
func actorRole(c *gin.Context) domain.Role {
	return domain.Role(c.GetString(middleware.ContextUserRole))
}
