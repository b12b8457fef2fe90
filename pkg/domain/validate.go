package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the struct tags of an entity or link and reports the first
// failing field as a ValidationError.
func Validate(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return Invalid(fe.Field(), "is required")
		case "oneof":
			return Invalid(fe.Field(), "must be one of [%s], got %q", fe.Param(), fe.Value())
		}
		return Invalid(fe.Field(), "failed %s validation", fe.Tag())
	}
	return ValidationError{Message: err.Error()}
}
