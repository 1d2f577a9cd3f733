package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Envelope mirrors the API response wrapper with the payload left raw
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		// Details is a list of FieldError for binding failures and an object otherwise
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

// FieldError is one entry of a binding failure's details
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Do sends a request through handler. A non-nil body is encoded as JSON.
func Do(t *testing.T, handler http.Handler, method, path string, body any, headers ...map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			reader = ToJSONReader(t, body)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeEnvelope parses the recorded response as the API envelope
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "response is not an envelope: %s", w.Body.String())
	return env
}

// DecodeData parses the envelope's data field into T
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	env := DecodeEnvelope(t, w)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), "decode data: %s", string(env.Data))
	return out
}

// AssertSuccess checks the status code and that the envelope reports success
func AssertSuccess(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())
	if status == http.StatusNoContent {
		return
	}
	env := DecodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
}

// AssertError checks the status code and the envelope's error code
func AssertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())
	env := DecodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error, "missing error object")
	assert.Equal(t, code, env.Error.Code)
}

// AssertValidationFields checks for a 400 VALIDATION_ERROR whose details name
// every field in fields. It returns the decoded details.
func AssertValidationFields(t *testing.T, w *httptest.ResponseRecorder, fields ...string) []FieldError {
	t.Helper()

	AssertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	env := DecodeEnvelope(t, w)
	var details []FieldError
	require.NoError(t, json.Unmarshal(env.Error.Details, &details), "details are not a field list: %s", string(env.Error.Details))
	got := make([]string, 0, len(details))
	for _, d := range details {
		assert.NotEmpty(t, d.Message, "field %s has no message", d.Field)
		got = append(got, d.Field)
	}
	for _, f := range fields {
		assert.Contains(t, got, f)
	}
	return details
}

// DetailMap decodes object-shaped error details
func DetailMap(t *testing.T, env Envelope) map[string]any {
	t.Helper()

	require.NotNil(t, env.Error, "missing error object")
	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Error.Details, &out), "details are not an object: %s", string(env.Error.Details))
	return out
}

// ToJSONReader marshals v into a reader
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "marshal request body")
	return bytes.NewReader(data)
}
