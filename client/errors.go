package client

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an APIError. The set is closed: every remote failure
// maps to exactly one code, with CodeUnknown covering unmapped statuses.
type ErrorCode string

const (
	CodeInvalidCredentials  ErrorCode = "invalid-credentials"
	CodeUsernameExists      ErrorCode = "username-exists"
	CodeInsufficientBalance ErrorCode = "insufficient-balance"
	CodeFileNotFound        ErrorCode = "file-not-found"
	CodeInsufficientSOL     ErrorCode = "insufficient-sol"
	CodeUnknown             ErrorCode = "unknown"
)

// APIError is a call the remote service rejected or failed. Status carries
// the raw HTTP status; Code the mapped classification.
type APIError struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pipe: api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// ValidationError is malformed input rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipe: invalid %s: %s", e.Field, e.Reason)
}

var (
	// ErrConnectionFailed indicates the HTTP request itself failed before a
	// status code was received.
	ErrConnectionFailed = errors.New("pipe: connection failed")

	// ErrInvalidResponse indicates the service returned a body that could
	// not be decoded.
	ErrInvalidResponse = errors.New("pipe: invalid response")

	// ErrDownloadTimeout indicates a download exceeded the configured bound.
	// Uploads carry no such bound.
	ErrDownloadTimeout = errors.New("pipe: download timed out")
)

// IsCode reports whether err is an APIError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
