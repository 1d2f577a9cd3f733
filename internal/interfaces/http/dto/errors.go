package dto

import (
	"net/http"

	"github.com/nivaasi/backend/internal/domain/shared"
)

// Codes produced by the HTTP layer itself. Domain failures keep their domain code.
const (
	ErrCodeValidation       = shared.CodeValidation
	ErrCodeInvalidInput     = shared.CodeInvalidInput
	ErrCodeNotFound         = shared.CodeNotFound
	ErrCodeConflict         = shared.CodeConflict
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound    = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeNotFound:             http.StatusNotFound,
	shared.CodeConflict:             http.StatusConflict,
	shared.CodeAlreadyExists:        http.StatusConflict,
	shared.CodeOptimisticLockFailed: http.StatusConflict,
	shared.CodeValidation:           http.StatusBadRequest,
	shared.CodeInvalidInput:         http.StatusBadRequest,
	shared.CodeInvalidState:         http.StatusConflict,
	shared.CodeInconsistentState:    http.StatusInternalServerError,

	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:    http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,
	ErrCodeInternal:         http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
