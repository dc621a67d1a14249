package apperrors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeConfiguration ErrorCode = "configuration_error"
	ErrCodeValidation    ErrorCode = "validation_error"
	ErrCodeHTTP          ErrorCode = "http_error"
	ErrCodeConnection    ErrorCode = "connection_error"
	ErrCodeInternalError ErrorCode = "internal_error"
)

var (
	// ErrConfiguration is returned (wrapped) when the client cannot be constructed from the supplied settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation is returned (wrapped) when an argument is rejected before any request is sent.
	ErrValidation = errors.New("validation error")
)

// ConfigError reports a missing or invalid setting. It is terminal and never retried.
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Setting, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

func (e *ConfigError) Code() ErrorCode {
	return ErrCodeConfiguration
}

func NewConfigError(setting, message string) *ConfigError {
	return &ConfigError{Setting: setting, Message: message}
}

// ValidationError reports a rejected argument
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) Code() ErrorCode {
	return ErrCodeValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
