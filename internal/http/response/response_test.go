package response

import (
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"message": "test"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, float64(Version), body["v"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"message": "test"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domainerrors.NotFound("list not found"), http.StatusNotFound, "NOT_FOUND"},
		{"capacity", domainerrors.Capacity("too many lists"), http.StatusUnprocessableEntity, "CAPACITY"},
		{"wrapped transient", fmt.Errorf("vote: %w", domainerrors.Transient(nil, "remote down")), http.StatusServiceUnavailable, "TRANSIENT"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.IsType(t, "", body["error"])
		})
	}
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequests(w, "slow down", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])
}
