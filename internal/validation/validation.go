// Package validation checks caller supplied arguments before any request is made.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/claims-center/claimsapi/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

const AgentIDField = "agent_id"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields using their json names (limit, status) rather than the go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// AgentID trims the supplied agent id and rejects it if nothing is left
func AgentID(agentID string) (string, error) {
	trimmed := strings.TrimSpace(agentID)
	if trimmed == "" {
		return "", apperrors.NewValidationError(AgentIDField, "cannot be empty")
	}
	return trimmed, nil
}

// Struct validates a tagged filter struct and converts the first failure into a ValidationError.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return apperrors.NewValidationError(fe.Field(), formatValidationMessage(fe))
	}

	// programming error (e.g. nil or non-struct value)
	return apperrors.NewValidationError("request", err.Error())
}

func formatValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
