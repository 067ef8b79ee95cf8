package validation

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

type ErrorCode string

const (
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrEmailInUse      ErrorCode = "EMAIL_ALREADY_IN_USE"
	ErrInvalidLogin    ErrorCode = "INVALID_CREDENTIALS"
	ErrUnsupportedFile ErrorCode = "UNSUPPORTED_FILE"
)

// Error carries per-field messages for form input.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Fields     map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func New(code ErrorCode, message string, status int) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

// Fields collects field errors; Err returns nil when nothing was recorded.
type Fields map[string]string

func (f Fields) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "is required"
	}
}

func (f Fields) Check(ok bool, field, message string) {
	if !ok {
		if _, exists := f[field]; !exists {
			f[field] = message
		}
	}
}

func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Code: ErrValidation, Message: "Invalid input", StatusCode: http.StatusBadRequest, Fields: f}
}

func As(err error) (*Error, bool) {
	var v *Error
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
