package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error so transports and callers can branch on the
// kind of failure without string matching.
type Code string

const (
	// CodeNotFound: the referenced item, patron, or loan does not exist.
	CodeNotFound Code = "not_found"
	// CodePreconditionFailed: a business rule blocked the operation (no
	// copies available, loan limit reached, loan already returned). These
	// are normal, expected outcomes, not faults.
	CodePreconditionFailed Code = "precondition_failed"
	// CodeIntegrityViolation: a loan references an item or patron that no
	// longer exists. Indicates corrupted data, not caller error.
	CodeIntegrityViolation Code = "integrity_violation"
	// CodeConflict: a record with the same key already exists.
	CodeConflict Code = "conflict"
	// CodeValidation: the input failed a model invariant.
	CodeValidation Code = "validation"
	// CodeBadRequest: the request could not be parsed or is missing fields.
	CodeBadRequest Code = "bad_request"
	// CodeTimeout: the operation was abandoned because its context expired.
	CodeTimeout Code = "timeout"
	// CodeInternal: an infrastructure failure the caller cannot act on.
	CodeInternal Code = "internal_error"
)

// Error carries a code plus a human-readable message and optionally wraps a
// cause. Services return these; stores return sentinel errors which services
// translate.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error with a fixed message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		if de.cause == nil {
			return false
		}
		err = de.cause
	}
	return false
}

// Is is a call-site-friendly alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the outermost code, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the outermost message, or err.Error() for uncoded
// errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
