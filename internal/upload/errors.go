package upload

import (
	"errors"
	"fmt"
)

// ErrorCode represents upload error categories.
type ErrorCode string

const (
	ErrCodeInvalidToken      ErrorCode = "invalid_token"
	ErrCodeChallengeExpired  ErrorCode = "challenge_expired"
	ErrCodeNotFound          ErrorCode = "upload_not_found"
	ErrCodeTooLarge          ErrorCode = "upload_too_large"
	ErrCodeExtension         ErrorCode = "disallowed_extension"
	ErrCodeDoubleExtension   ErrorCode = "double_extension"
	ErrCodeSignatureMismatch ErrorCode = "signature_mismatch"
	ErrCodeStoreUnavailable  ErrorCode = "store_unavailable"
	ErrCodeInternal          ErrorCode = "internal_error"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeInvalidToken:      "Invalid upload challenge",
	ErrCodeChallengeExpired:  "Upload challenge expired",
	ErrCodeNotFound:          "Uploaded object not found",
	ErrCodeTooLarge:          "Uploaded object exceeds the size limit",
	ErrCodeExtension:         "File extension is not allowed",
	ErrCodeDoubleExtension:   "File name carries a double extension",
	ErrCodeSignatureMismatch: "File content does not match its extension",
	ErrCodeStoreUnavailable:  "Blob store unavailable",
	ErrCodeInternal:          "Internal error",
}

// Error wraps upload errors with a stable code and message. Policy
// rejections and transient store failures share the type but never the code:
// only ErrCodeStoreUnavailable and ErrCodeInternal are retryable.
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

// CodeOf returns the error code carried by err, or empty when err is not an
// upload error.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsTransient reports whether err is a retryable store failure rather than a
// terminal policy outcome.
func IsTransient(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeStoreUnavailable || code == ErrCodeInternal
}
