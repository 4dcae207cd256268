package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeForKind(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		code     string
		expected int
	}{
		{shared.KindValidation, ErrCodeValidation, http.StatusBadRequest},
		{shared.KindNotFound, ErrCodeNotFound, http.StatusNotFound},
		{shared.KindStateConflict, ErrCodeInvalidState, http.StatusConflict},
		{shared.KindConcurrencyConflict, ErrCodeConcurrencyConflict, http.StatusConflict},
		{shared.KindDuplicatePayment, ErrCodeDuplicatePayment, http.StatusConflict},
		{shared.KindInsufficientStock, ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{shared.KindOverpayment, ErrCodeOverpayment, http.StatusUnprocessableEntity},
		{shared.KindInternal, ErrCodeInternal, http.StatusInternalServerError},
		{shared.ErrorKind("SOMETHING_ELSE"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			code := CodeForKind(tt.kind)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.expected, GetHTTPStatus(code))
		})
	}
}

func TestGetHTTPStatus_UnknownCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("UNKNOWN_CODE"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, GetHTTPStatus(ErrCodeRequestTooLarge))
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "quantity", Message: "Must be greater than 0"},
	})

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, false, decoded["success"])
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.Len(t, errInfo["fields"], 1)
	assert.NotContains(t, decoded, "data")
}
