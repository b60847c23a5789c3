package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New creates a validator that reports JSON field names and knows the
// custom "notblank" rule used by the request DTOs.
func New() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Rejects whitespace-only strings; non-string fields pass.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return strings.TrimSpace(str) != ""
	})

	return v
}

// Message turns a validation error into a short client-facing message
// naming the first offending field.
func Message(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return "invalid request: " + field + " is required"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "oneof":
		return "invalid request: " + field + " must be one of " + fe.Param()
	case "email":
		return "invalid request: " + field + " must be a valid email address"
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	}
	return "invalid request: " + field + " is invalid"
}
