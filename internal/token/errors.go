package token

import (
	"errors"
	"fmt"
)

// ErrorCode represents token error categories.
type ErrorCode string

const (
	ErrCodeFormat           ErrorCode = "token_format_error"
	ErrCodeExpired          ErrorCode = "token_expired"
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeInternal         ErrorCode = "internal_error"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeFormat:           "Malformed or unrecognized token",
	ErrCodeExpired:          "Token expired",
	ErrCodeInvalidSignature: "Invalid token signature",
	ErrCodeInternal:         "Internal error",
}

// Error wraps token errors with a stable code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the error code carried by err, or empty when err is not a
// token error.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
