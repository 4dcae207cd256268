package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minhtran291/PMS-Backend-sub002/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentForm struct {
	GatewayRef string          `json:"gateway_ref" binding:"required,max=10"`
	Type       string          `json:"type" binding:"required,oneof=DEPOSIT REMAIN FULL"`
	Amount     decimal.Decimal `json:"amount" binding:"required,dpositive"`
	Quantity   int64           `json:"quantity" binding:"omitempty,gt=0"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req paymentForm
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.Amount.String()))
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields map[string]string
	}{
		{
			name:       "valid payment",
			body:       `{"gateway_ref":"GW-1","type":"DEPOSIT","amount":"150000"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing reference uses json field name",
			body:       `{"type":"FULL","amount":"10"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"gateway_ref": "This field is required"},
		},
		{
			name:       "zero amount rejected",
			body:       `{"gateway_ref":"GW-1","type":"FULL","amount":"0"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"amount": "Must be a positive amount"},
		},
		{
			name:       "negative amount rejected",
			body:       `{"gateway_ref":"GW-1","type":"FULL","amount":"-5"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"amount": "Must be a positive amount"},
		},
		{
			name:       "unknown payment type",
			body:       `{"gateway_ref":"GW-1","type":"CASH","amount":"5","quantity":-1}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{
				"type":     "Must be one of: DEPOSIT REMAIN FULL",
				"quantity": "Must be greater than 0",
			},
		},
		{
			name:       "reference too long",
			body:       `{"gateway_ref":"GW-123456789","type":"FULL","amount":"5"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"gateway_ref": "Must be at most 10 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantFields == nil {
				return
			}

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

			got := make(map[string]string, len(resp.Error.Fields))
			for _, f := range resp.Error.Fields {
				got[f.Field] = f.Message
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req-9")

	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	assert.Empty(t, resp.Error.Fields)
}
