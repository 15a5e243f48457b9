// Package validation checks user-entered values (list names, contact messages,
// ingestion requests) with validator/v10 and converts failures to domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
)

// MaxListNameLength bounds list names in characters.
const MaxListNameLength = 50

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the shareboard tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// notblank rejects strings that are empty after trimming whitespace,
	// including the ideographic space.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// runemax bounds length in characters rather than bytes.
	_ = v.RegisterValidation("runemax", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscan(fl.Param(), &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(fl.Field().String()) <= limit
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// ListName trims name and checks it is a usable list name.
func (v *Validator) ListName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := v.v.Var(name, fmt.Sprintf("notblank,runemax=%d", MaxListNameLength)); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return "", domainerrors.ValidationWithDetails("invalid list name",
				map[string]string{"name": v.friendlyMessage(fieldErrs[0])})
		}
		return "", err
	}
	return name, nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max", "runemax":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url", "http_url":
		return "must be a valid URL"
	case "contains":
		return "must contain " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
