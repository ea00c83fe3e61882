package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		expected int
	}{
		{shared.KindValidation, http.StatusBadRequest},
		{shared.KindBusinessRule, http.StatusConflict},
		{shared.KindInvalidState, http.StatusConflict},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindRateLimited, http.StatusTooManyRequests},
		{shared.KindUnauthorized, http.StatusUnauthorized},
		{shared.KindForbidden, http.StatusForbidden},
		{"", http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForKind(tt.kind))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INSUFFICIENT_STOCK", ErrCodeInsufficientStock},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"EMPTY_ORDER", "ERR_EMPTY_ORDER"},
		{"", ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Order not found", "req-1")

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeNotFound, errObj["code"])
	assert.Equal(t, "Order not found", errObj["message"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.NotContains(t, errObj, "details")
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "quantity", Message: "quantity must be at least 1"}}
	resp := NewValidationErrorResponse("Request validation failed", "req-2", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestNewRateLimitResponse(t *testing.T) {
	body, err := json.Marshal(NewRateLimitResponse())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Len(t, decoded, 3)
	assert.Equal(t, "too_many_requests", decoded["code"])
	assert.Equal(t, RateLimitError, decoded["error"])
	assert.Equal(t, RateLimitDetail, decoded["detail"])
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		pageSize      int
		expectedPages int
	}{
		{"exact pages", 40, 20, 2},
		{"partial page", 41, 20, 3},
		{"empty", 0, 20, 0},
		{"zero page size uses default", 25, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
			assert.True(t, resp.Success)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		})
	}
}

func TestPaginate(t *testing.T) {
	page, size := Paginate(0, 0)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = Paginate(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageSize, size)
}
