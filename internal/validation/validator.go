// Package validation checks user input with go-playground/validator and turns
// failures into inline, field-level domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their JSON names and knows
// the "notblank" tag (required, after trimming whitespace).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

// Validate validates a struct. The first failing field's message becomes the
// error message (the one shown inline); all fields are listed in Details.
//
// A struct may supply its own messages by implementing Messages, keyed by the
// JSON field name.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var custom map[string]string
	if m, ok := s.(interface{ Messages() map[string]string }); ok {
		custom = m.Messages()
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	first := ""
	for _, e := range validationErrs {
		msg, ok := custom[e.Field()]
		if !ok {
			msg = e.Field() + " " + friendlyMessage(e)
		}
		fieldErrors[e.Field()] = msg
		if first == "" {
			first = msg
		}
	}

	return domainerrors.ValidationWithDetails(first, fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
