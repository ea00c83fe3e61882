package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/lines", func(c *gin.Context) {
		var in lineInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
		wantFields  []string
	}{
		{"valid", `{"product_id":"6f1c1c9e-3f5a-4a5e-9c55-1b7b0f7b2a10","quantity":2}`, http.StatusOK, "", nil},
		{"missing fields", `{}`, http.StatusBadRequest, "Request validation failed", []string{"product_id", "quantity"}},
		{"bad uuid", `{"product_id":"nope","quantity":1}`, http.StatusBadRequest, "Request validation failed", []string{"product_id"}},
		{"malformed json", `{"product_id":`, http.StatusBadRequest, "Malformed request body", nil},
		{"wrong type", `{"product_id":"6f1c1c9e-3f5a-4a5e-9c55-1b7b0f7b2a10","quantity":"two"}`, http.StatusBadRequest, "Malformed request body", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				return
			}

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.Equal(t, w.Header().Get(RequestIDHeader), resp.Error.RequestID)

			fields := make([]string, 0, len(resp.Error.Details))
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestGetValidationMessage(t *testing.T) {
	type sample struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Max      int    `validate:"max=10"`
		OneOf    string `validate:"oneof=ip user"`
	}

	v := validator.New()
	err := v.Struct(sample{Min: "ab", Max: 11, OneOf: "x"})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = getValidationMessage(e)
	}

	assert.Equal(t, "This field is required", got["Required"])
	assert.Equal(t, "Must be at least 5 characters", got["Min"])
	assert.Equal(t, "Must be at most 10", got["Max"])
	assert.Equal(t, "Must be one of: ip user", got["OneOf"])
}
