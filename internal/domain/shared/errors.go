package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeValidation           = "VALIDATION_ERROR"
	CodeInconsistentState    = "INCONSISTENT_STATE"
	CodeOptimisticLockFailed = "OPTIMISTIC_LOCK_FAILED"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidState         = "INVALID_STATE"
	CodeAlreadyExists        = "ALREADY_EXISTS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that wraps an underlying cause.
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict          = NewDomainError(CodeConflict, "Resource is not in the required state")
	ErrValidation        = NewDomainError(CodeValidation, "Validation failed")
	ErrInconsistentState = NewDomainError(CodeInconsistentState, "Bed and tenant records have diverged")
	ErrOptimisticLock    = NewDomainError(CodeOptimisticLockFailed, "Resource was modified by another process")
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrAlreadyExists     = NewDomainError(CodeAlreadyExists, "Resource already exists")
)

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConflict reports whether err is a state conflict, including lost optimistic locks.
func IsConflict(err error) bool {
	return HasCode(err, CodeConflict) || HasCode(err, CodeOptimisticLockFailed)
}

// HasCode reports whether any DomainError in err's chain has the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}
