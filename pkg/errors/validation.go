package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// maxVersionIDLength bounds release identifiers accepted from callers.
const maxVersionIDLength = 128

// ValidateURL validates that rawURL is a well-formed absolute http or https URL
// with a host. Relative references, opaque URLs and other schemes are rejected.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "malformed URL %q", rawURL)
	}
	if !u.IsAbs() {
		return New(ErrCodeInvalidInput, "URL must be absolute: %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme: %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}

	return nil
}

// ValidateVersionID validates a release identifier supplied by a caller
// (CLI argument, API path parameter) before it is used as a lookup key or
// a file name.
//
// Validation rules:
//   - ID cannot be empty
//   - Maximum length of 128 characters
//   - No control characters or whitespace at either end
//   - No path separators or traversal sequences
func ValidateVersionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "version id cannot be empty")
	}

	if len(id) > maxVersionIDLength {
		return New(ErrCodeInvalidInput, "version id too long (max %d characters)", maxVersionIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "version id contains control characters")
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidInput, "version id has surrounding whitespace: %q", id)
	}

	if strings.ContainsAny(id, "/\\") || id == "." || strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "version id contains invalid characters: %q", id)
	}

	return nil
}
