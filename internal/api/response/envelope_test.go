package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/turnstile/internal/api/response"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewMeta_GeneratesUUID(t *testing.T) {
	meta := response.NewMeta("")

	_, err := uuid.Parse(meta.RequestID)
	assert.NoError(t, err, "requestId should be a valid UUID")
}

func TestNewMeta_UsesProvidedRequestID(t *testing.T) {
	assert.Equal(t, "req-1", response.NewMeta("req-1").RequestID)
}

func TestNewMeta_TimestampIsRFC3339(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)

	parsed, err := time.Parse(time.RFC3339, response.NewMeta("").Timestamp)

	require.NoError(t, err)
	assert.False(t, parsed.Before(before))
}

func TestSuccess_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Success(w, http.StatusCreated, map[string]int{"quantity": 2}, "req-2")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Nil(t, body["error"])
	assert.Equal(t, map[string]any{"quantity": float64(2)}, body["data"])
	assert.Equal(t, "req-2", body["meta"].(map[string]any)["requestId"])
}

func TestErr_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Err(w, http.StatusNotFound, "NOT_FOUND", "Event not found", "req-3")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["data"])
	apiErr := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", apiErr["code"])
	assert.Equal(t, "Event not found", apiErr["message"])
	assert.NotContains(t, apiErr, "details")
}

func TestErrWithDetails_IncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	response.ErrWithDetails(w, http.StatusConflict, "CAPACITY_EXCEEDED", "Only 2 available",
		map[string]int{"remaining": 2}, "req-4")

	apiErr := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, map[string]any{"remaining": float64(2)}, apiErr["details"])
}

func TestRaw_WritesFlatBody(t *testing.T) {
	w := httptest.NewRecorder()

	response.Raw(w, http.StatusOK, map[string]string{"status": "valid"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "valid", body["status"])
	assert.NotContains(t, body, "meta")
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	response.NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}
