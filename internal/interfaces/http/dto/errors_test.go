package dto

import (
	"net/http"
	"testing"

	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeConflict, http.StatusConflict},
		{shared.CodeOptimisticLockFailed, http.StatusConflict},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeInconsistentState, http.StatusInternalServerError},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 45, 2, 20)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	unpaged := NewSuccessResponseWithMeta([]int{}, 45, 1, 0)
	assert.Equal(t, 1, unpaged.Meta.TotalPages)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "mobile", Message: "This field is required"},
	})
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)

	bare := NewValidationErrorResponse("Request validation failed", "", nil)
	assert.Nil(t, bare.Error.Details)
}
