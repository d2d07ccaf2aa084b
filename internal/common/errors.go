package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the processing core. Handlers map these to HTTP
// status codes; pipeline stages wrap them with per-file detail.
var (
	ErrInvalidImage = errors.New("invalid image")
	ErrOCRFailure   = errors.New("ocr failure")
	ErrPersistence  = errors.New("persistence failure")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
)

// AppError carries a machine-readable code alongside a human message.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StatusForError maps the error taxonomy onto HTTP status codes.
// Unknown errors are treated as infrastructure trouble.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
