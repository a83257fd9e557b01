// Package validation checks decoded client payloads using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v              *validator.Validate
	maxBatchPixels int
}

// New creates a validator. maxBatchPixels caps the size of a single edit batch;
// zero disables the cap.
func New(maxBatchPixels int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v, maxBatchPixels: maxBatchPixels}
}

// Validate validates a struct and returns a domain validation error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err, domainerrors.ValidationWithDetails)
	}
	return nil
}

// Batch validates an edit batch. Failures carry CodeMalformedBatch.
func (v *Validator) Batch(b *domain.Batch) error {
	if b == nil {
		return domainerrors.MalformedBatch("missing batch")
	}
	if v.maxBatchPixels > 0 && len(b.Pixels) > v.maxBatchPixels {
		return domainerrors.MalformedBatchf("batch has %d pixels, limit is %d", len(b.Pixels), v.maxBatchPixels)
	}
	if err := v.v.Struct(b); err != nil {
		return v.formatError(err, func(msg string, details any) *domainerrors.Error {
			return domainerrors.MalformedBatch(msg).WithDetails(details)
		})
	}
	return nil
}

func (v *Validator) formatError(err error, wrap func(string, any) *domainerrors.Error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = friendlyMessage(e)
	}
	return wrap("validation failed", fieldErrors)
}

// fieldPath drops the top-level struct name: "Batch.pixels[0].x" -> "pixels[0].x".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
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
