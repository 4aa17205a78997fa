package core

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Error taxonomy shared by every resource. Callers wrap these with context (errors.Wrap);
// the HTTP layer maps errors.Cause(err) to a status code.
var (
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrAccountNotFound   = errors.New("account not found")
	ErrProfileMissing    = errors.New("account has no profile")
	ErrForbidden         = errors.New("you do not have permission to perform this action")
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicate         = errors.New("resource already exists")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrRateLimited       = errors.New("too many requests")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"message"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return NewValidationError(errors.New(msg), FieldError{Field: field, Error: msg})
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// LockedError is returned when an Account is temporarily locked after too many failed logins.
type LockedError struct {
	Until time.Time
}

func (err LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", err.Until.UTC().Format(time.RFC3339))
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
