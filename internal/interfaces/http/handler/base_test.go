package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/logger"
	"github.com/minhtran291/PMS-Backend-sub002/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{
			name:       "validation",
			err:        shared.NewValidationError("INVALID_QUANTITY", "quantity must be positive"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
			wantReason: "INVALID_QUANTITY",
		},
		{
			name:       "not found",
			err:        shared.NewNotFoundError("lot", "LOT-1"),
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "concurrency conflict",
			err:        shared.NewConcurrencyConflictError("lot changed"),
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeConcurrencyConflict,
		},
		{
			name:       "duplicate payment",
			err:        shared.NewDomainError(shared.KindDuplicatePayment, "DUPLICATE_PAYMENT", "already applied"),
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeDuplicatePayment,
			wantReason: "DUPLICATE_PAYMENT",
		},
		{
			name:       "insufficient stock",
			err:        shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK", "short by 3"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeInsufficientStock,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("commit: %w", shared.NewValidationError("BAD", "bad input")),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
			wantReason: "BAD",
		},
		{
			name:       "internal domain error hides the cause",
			err:        shared.NewInternalError("write failed", errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.Header.Set(logger.RequestIDHeader, "req-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, resp.Error.Reason)
			}
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "disk full")
				assert.NotContains(t, w.Body.String(), "boom")
			}
		})
	}
}

func TestBaseHandler_HandleErrorWithData(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	err := shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK", "short").
		WithDetail("shortfall", 5)
	h.HandleErrorWithData(c, err, map[string]int{"allocated": 7})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Data  map[string]int `json:"data"`
		Error dto.ErrorInfo  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Data["allocated"])
	assert.EqualValues(t, 5, resp.Error.Details["shortfall"])
}

func TestBaseHandler_UUIDParam(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantOK bool
	}{
		{name: "valid", value: "7f3c1a52-8a50-4c1e-9d37-2b6f3f0c9a11", wantOK: true},
		{name: "malformed", value: "lot-1", wantOK: false},
		{name: "empty", value: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			_, ok := h.uuidParam(c, "id")
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
