package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mtlprog/hrscore/internal/domain"
)

// Error codes returned in ErrorDetail.Code.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeDependencyTimeout     = "DEPENDENCY_TIMEOUT"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInvalidJSON           = "INVALID_JSON"
	CodeServiceBusy           = "SERVICE_BUSY"
	CodeRateLimited           = "RATE_LIMITED"
	CodeInternal              = "INTERNAL_ERROR"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code, message and whether the caller may retry.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string, retryable bool) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error details.
func MapDomainError(err error) (status int, detail ErrorDetail) {
	message := err.Error()

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorDetail{Code: CodeNotFound, Message: message}

	case errors.Is(err, domain.ErrDependencyTimeout):
		return http.StatusServiceUnavailable, ErrorDetail{Code: CodeDependencyTimeout, Message: message, Retryable: true}
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, ErrorDetail{Code: CodeDependencyUnavailable, Message: "Storage is temporarily unavailable", Retryable: true}

	case errors.Is(err, domain.ErrRescoreQueueFull),
		errors.Is(err, domain.ErrDispatcherStopped):
		return http.StatusServiceUnavailable, ErrorDetail{Code: CodeServiceBusy, Message: message, Retryable: true}

	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, ErrorDetail{Code: CodeInvalidTransition, Message: message}
	case errors.Is(err, domain.ErrTaskConflict):
		return http.StatusConflict, ErrorDetail{Code: CodeInvalidTransition, Message: message, Retryable: true}

	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, ErrorDetail{Code: CodeValidation, Message: message}

	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, ErrorDetail{Code: CodeInternal, Message: "Internal server error"}
	}
}
