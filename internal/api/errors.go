package api

import (
	"errors"
	"net/http"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
// Ownership failures report 404, not 403, so a caller cannot probe for the
// existence of another user's reports.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var security *domain.SecurityViolationError
	var timeout *domain.TimeoutError
	var execution *domain.ExecutionError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &security):
		return http.StatusForbidden
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &execution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
