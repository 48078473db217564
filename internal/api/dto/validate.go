package dto

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_. ]+$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*]{5,30}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks v against its struct tags and returns a VALIDATION_FAILED
// DomainError naming each offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	fields := make(map[string]any, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = messageFor(fe)
	}
	return apperrors.NewValidationError("invalid payload", map[string]any{"fields": fields})
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "username":
		return "may contain letters, digits, spaces, '_' and '.' only"
	case "password":
		return "must be 5-30 characters of letters, digits or !@#$%^&*"
	default:
		return "is invalid"
	}
}
