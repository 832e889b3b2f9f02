package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure for UX decisions. The classification
// mirrors how failures are presented: network problems get the generic
// "check the server" message, conflicts and validation failures surface the
// backend's own text, 401 tears the session down, platform failures are
// shown inline next to the action that caused them.
type ErrorKind string

const (
	ErrKindNetwork      ErrorKind = "network"
	ErrKindConflict     ErrorKind = "conflict"
	ErrKindUnauthorized ErrorKind = "unauthorized"
	ErrKindValidation   ErrorKind = "validation"
	ErrKindPlatform     ErrorKind = "platform"
	ErrKindMalformed    ErrorKind = "malformed"
	ErrKindUpload       ErrorKind = "upload"
	ErrKindServer       ErrorKind = "server"
)

// APIError is a classified backend failure. Message carries the backend's
// error text verbatim when the response body supplied one.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// KindOf extracts the classification from err, or ErrKindServer when err is
// not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrKindServer
}

// IsConflict reports whether err is the duplicate-open-request condition.
func IsConflict(err error) bool {
	return KindOf(err) == ErrKindConflict
}

// IsUnauthorized reports whether err means the session token was rejected.
func IsUnauthorized(err error) bool {
	return KindOf(err) == ErrKindUnauthorized
}
