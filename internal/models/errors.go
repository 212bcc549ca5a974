package models

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed caller supplied data.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderError is a failure reported by, or while talking to, the messaging provider.
type ProviderError struct {
	Code       int
	Message    string
	HTTPStatus int
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("provider timeout: %s", e.Message)
	case e.Code != 0:
		return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("provider error: %s", e.Message)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StoreErrorCode classifies document store failures.
type StoreErrorCode string

const (
	StoreUnavailable      StoreErrorCode = "unavailable"
	StorePermissionDenied StoreErrorCode = "permission_denied"
	StoreNotFound         StoreErrorCode = "not_found"
	StoreInternal         StoreErrorCode = "internal"
)

// StoreError wraps a document store failure with a classification.
type StoreError struct {
	Op   string
	Code StoreErrorCode
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MediaProcessingError is a failure of the best-effort inbound media path.
type MediaProcessingError struct {
	Stage   string
	MediaID string
	Err     error
}

func (e *MediaProcessingError) Error() string {
	return fmt.Sprintf("media %s failed at %s: %v", e.MediaID, e.Stage, e.Err)
}

func (e *MediaProcessingError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreCode returns the store classification of err, or "" if err is not a StoreError.
func StoreCode(err error) StoreErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
