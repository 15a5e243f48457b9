package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/validation"
)

func TestValidator_ContactMessage(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		msg       domain.ContactMessage
		wantField string
	}{
		{
			name: "valid",
			msg:  domain.ContactMessage{Name: "読者", Email: "a@example.com", Content: "hello"},
		},
		{
			name:      "missing name",
			msg:       domain.ContactMessage{Content: "hello"},
			wantField: "name",
		},
		{
			name:      "invalid email",
			msg:       domain.ContactMessage{Name: "a", Email: "nope", Content: "hello"},
			wantField: "email",
		},
		{
			name:      "missing content",
			msg:       domain.ContactMessage{Name: "a"},
			wantField: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.msg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Details, tt.wantField)
		})
	}
}

func TestValidator_ListName(t *testing.T) {
	v := validation.New()

	name, err := v.ListName("  お気に入り  ")
	require.NoError(t, err)
	assert.Equal(t, "お気に入り", name)

	_, err = v.ListName("　")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = v.ListName(strings.Repeat("あ", validation.MaxListNameLength))
	assert.NoError(t, err, "length counts characters")

	_, err = v.ListName(strings.Repeat("a", validation.MaxListNameLength+1))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
