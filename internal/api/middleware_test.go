package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/http/response"
	"github.com/shareboard/shareboard/internal/ratelimit"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}},
		{name: "plain error", status: "500", input: errors.New("internal error")},
		{name: "api error", status: "409", input: &APIError{Code: "CONFLICT", Message: "list changed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			env, ok := result.(response.Envelope)
			require.True(t, ok, "expected response.Envelope")
			assert.Equal(t, response.Version, env.Version)
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"name": "Night Shift"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	env := result.(response.Envelope)
	assert.True(t, env.Success)
	assert.Equal(t, data, env.Data)
	assert.Empty(t, env.Error)
}

func TestEnvelopeTransformer_ErrorWithDetails(t *testing.T) {
	apiErr := &APIError{
		Code:    "VALIDATION",
		Message: "validation failed",
		Details: []string{"body.name: expected length >= 1"},
	}

	result, err := EnvelopeTransformer(nil, "422", apiErr)
	require.NoError(t, err)

	env := result.(response.Envelope)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Equal(t, "validation failed", env.Message)
	assert.Equal(t, []string{"body.name: expected length >= 1"}, env.Details)
}

func TestEnvelopeTransformer_PassesEnvelopeThrough(t *testing.T) {
	in := response.WrapError("NOT_FOUND", "gone", nil)
	result, err := EnvelopeTransformer(nil, "404", in)
	require.NoError(t, err)
	assert.Equal(t, in, result)
}

func TestNewAPIError_KeepsDomainCode(t *testing.T) {
	err := newAPIError(http.StatusInternalServerError, "boom", domainerrors.Capacity("list is full"))

	assert.Equal(t, http.StatusUnprocessableEntity, err.GetStatus())
	apiErr := err.(*APIError)
	assert.Equal(t, string(domainerrors.CodeCapacity), apiErr.Code)
	assert.Equal(t, "list is full", apiErr.Message)
}

func TestNewAPIError_MapsStatus(t *testing.T) {
	err := newAPIError(http.StatusNotFound, "no route")
	assert.Equal(t, string(domainerrors.CodeNotFound), err.(*APIError).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	defer limiter.Stop()

	handler := RateLimitMiddleware(limiter, slog.New(slog.DiscardHandler))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	post := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, post("10.0.0.1:5001"))
	assert.Equal(t, http.StatusOK, post("10.0.0.2:5000"), "limits are per address")

	// Reads are never limited.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/filters", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
