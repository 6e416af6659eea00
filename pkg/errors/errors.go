// Package errors provides structured error types for mcmeta.
//
// Every failure surfaced by the metadata fetchers carries a machine-readable
// [Code] so callers can tell a transport failure from a bad status, a body
// that is not JSON from a document that fails validation, and the two archive
// failure kinds apart:
//   - TRANSPORT_ERROR: the request could not be completed
//   - HTTP_STATUS: the publisher answered with a non-2xx status
//   - MALFORMED_BODY: the body is not valid JSON for the expected document
//   - VALIDATION_FAILED: the body parsed but violates the schema
//   - ARCHIVE_IO: the archive could not be written or read locally
//   - ARCHIVE_FORMAT: the archive is unreadable or holds no document
//
// # Usage
//
//	err := errors.HTTPStatus(url, resp.StatusCode)
//	if errors.Is(err, errors.ErrCodeHTTPStatus) {
//	    log.Warn("publisher refused", "status", errors.StatusCode(err))
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeArchiveIO, origErr, "write archive %s", name)
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Fetch pipeline errors
	ErrCodeTransport     Code = "TRANSPORT_ERROR"
	ErrCodeHTTPStatus    Code = "HTTP_STATUS"
	ErrCodeMalformedBody Code = "MALFORMED_BODY"
	ErrCodeValidation    Code = "VALIDATION_FAILED"

	// Archive extraction errors
	ErrCodeArchiveIO     Code = "ARCHIVE_IO"
	ErrCodeArchiveFormat Code = "ARCHIVE_FORMAT"

	// Input and configuration errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
//
// URL, StatusCode and Body are populated by the fetch constructors so a
// failure can be diagnosed without fetching the document again.
type Error struct {
	Code       Code   // Machine-readable error code
	Message    string // Human-readable message
	URL        string // Source URL of the failed operation (optional)
	StatusCode int    // HTTP status for HTTP_STATUS errors
	Body       []byte // Offending raw content for MALFORMED_BODY errors
	Cause      error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Transport reports a request to url that could not be completed.
// Context cancellation and deadline errors stay reachable through errors.Is.
func Transport(url string, cause error) *Error {
	return &Error{
		Code:    ErrCodeTransport,
		Message: "request failed",
		URL:     url,
		Cause:   cause,
	}
}

// HTTPStatus reports a response from url carrying a non-success status.
func HTTPStatus(url string, status int) *Error {
	return &Error{
		Code:       ErrCodeHTTPStatus,
		Message:    fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status)),
		URL:        url,
		StatusCode: status,
	}
}

// MalformedBody reports a body from url that could not be parsed.
// The full body is retained on the returned error.
func MalformedBody(url string, body []byte, cause error) *Error {
	return &Error{
		Code:    ErrCodeMalformedBody,
		Message: "malformed document",
		URL:     url,
		Body:    body,
		Cause:   cause,
	}
}

// Validation reports a document from url that parsed but failed validation.
func Validation(url string, cause error) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: "document failed validation",
		URL:     url,
		Cause:   cause,
	}
}

// ArchiveIO reports a failure writing or reading the local archive copy.
func ArchiveIO(url string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeArchiveIO,
		Message: fmt.Sprintf(format, args...),
		URL:     url,
		Cause:   cause,
	}
}

// ArchiveFormat reports an archive that could not be opened or holds no document.
func ArchiveFormat(url string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeArchiveFormat,
		Message: fmt.Sprintf(format, args...),
		URL:     url,
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// RawBody returns the raw content retained by a MALFORMED_BODY error, or nil.
func RawBody(err error) []byte {
	var e *Error
	if errors.As(err, &e) && e.Code == ErrCodeMalformedBody {
		return e.Body
	}
	return nil
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsRetryable reports whether a caller-side retry could plausibly succeed:
// transport failures and 5xx or 429 responses. Parse, validation and archive
// failures are never retryable. Context cancellation is not retryable either.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case ErrCodeTransport:
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	case ErrCodeHTTPStatus:
		code := StatusCode(err)
		return code >= 500 || code == http.StatusTooManyRequests
	default:
		return false
	}
}
