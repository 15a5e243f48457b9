package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Capacityf("list %s already holds %d items", "l1", 100)

	assert.True(t, Is(err, ErrCapacity))
	assert.False(t, Is(err, ErrNotFound))

	wrapped := fmt.Errorf("add to list: %w", err)
	assert.True(t, Is(wrapped, ErrCapacity))
}

func TestTransient_KeepsCause(t *testing.T) {
	cause := New("network down")
	err := Transient(cause, "vote failed")

	assert.True(t, Is(err, ErrTransient))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "vote failed: network down", err.Error())
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeValidation, http.StatusBadRequest},
		{CodeCapacity, http.StatusUnprocessableEntity},
		{CodeTransient, http.StatusServiceUnavailable},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	detailed := ErrValidation.WithDetails(map[string]string{"name": "is required"})

	require.NotNil(t, detailed.Details)
	assert.Nil(t, ErrValidation.Details)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("load: %w", NotFound("list not found"))))
	assert.Equal(t, CodeInternal, CodeOf(New("plain")))
}
