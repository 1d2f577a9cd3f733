package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentBody struct {
	Amount decimal.Decimal `json:"amount" binding:"gt=0"`
	Mode   string          `json:"mode" binding:"omitempty,paymentmode"`
	Date   string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Email  string          `json:"email" binding:"omitempty,email"`
}

func postJSON(t *testing.T, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/payments", func(c *gin.Context) {
		var req paymentBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.Amount))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestValidation_Accepts(t *testing.T) {
	w, resp := postJSON(t, `{"amount": "8500.50", "mode": "Bank Transfer", "date": "2024-03-31"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "8500.5", resp.Data)
}

func TestValidation_DecimalComparedAsNumber(t *testing.T) {
	w, resp := postJSON(t, `{"amount": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	details, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	detail := details[0].(map[string]any)
	assert.Equal(t, "amount", detail["field"])
	assert.Equal(t, "Must be greater than 0", detail["message"])
}

func TestValidation_EnumAndDateTags(t *testing.T) {
	w, resp := postJSON(t, `{"amount": 10, "mode": "Cheque", "date": "31/03/2024"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	details := resp.Error.Details.([]any)
	fields := make(map[string]string)
	for _, d := range details {
		m := d.(map[string]any)
		fields[m["field"].(string)] = m["message"].(string)
	}
	assert.Equal(t, "Must be one of: Cash, UPI, Bank Transfer, Card", fields["mode"])
	assert.Equal(t, "Must be a date formatted as 2006-01-02", fields["date"])
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestValidation_MalformedJSON(t *testing.T) {
	w, resp := postJSON(t, `{"amount": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
}
