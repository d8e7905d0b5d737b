// errors.go - Structured error responses and domain error mapping
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/models"
	"github.com/portfolio-collage/backend/internal/session"
	"github.com/portfolio-collage/backend/internal/storage"
)

// APIError is the JSON body of every failed API request
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	apiErr := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		apiErr.Details = cause.Error()
	}
	return apiErr
}

// NewBadRequestError creates a 400 error; cause, if any, becomes Details
func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

// NewValidationError creates a 400 error naming the offending field
func NewValidationError(field string) *APIError {
	return newAPIError(http.StatusBadRequest, "VALIDATION_ERROR", "validation failed for field: "+field, nil)
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *APIError {
	return newAPIError(http.StatusForbidden, "FORBIDDEN", message, nil)
}

// NewNotFoundError creates a 404 error for resource id
func NewNotFoundError(resource, id string) *APIError {
	return newAPIError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// NewInternalError creates a 500 error
func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

// NewServiceUnavailableError creates a 503 error
func NewServiceUnavailableError(message string) *APIError {
	return newAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, nil)
}

// domainError maps errors from the session and storage layers onto API
// errors. resource and id name the thing the request addressed.
func domainError(err error, resource, id string) *APIError {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError(resource, id)
	case errors.Is(err, session.ErrImageOutOfRange):
		return NewBadRequestError("image index out of range", err)
	case errors.Is(err, session.ErrTooManySessions):
		return NewServiceUnavailableError("too many collages are mounted, try again later")
	case errors.Is(err, models.ErrInvalidItem):
		return NewBadRequestError("invalid "+resource, err)
	default:
		return NewInternalError(resource+" request failed", err)
	}
}

// ErrorHandler renders every handler error as an APIError.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = newAPIError(httpErr.Code, "HTTP_ERROR", fmt.Sprint(httpErr.Message), nil)
	default:
		apiErr = newAPIError(http.StatusInternalServerError, "UNKNOWN_ERROR", "An unexpected error occurred", nil)
		if showErrorDetails() {
			apiErr.Details = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}

// showErrorDetails hides raw errors from clients when APP_ENV=production.
func showErrorDetails() bool {
	return os.Getenv("APP_ENV") != "production"
}
