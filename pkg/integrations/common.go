package integrations

import (
	"net/http"
	"time"

	"github.com/matzehuels/mcmeta/pkg/buildinfo"
)

const httpTimeout = 30 * time.Second

// NewHTTPClient creates an HTTP client with a standard timeout for publisher requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewHTTPClientWithTimeout creates an HTTP client with the given timeout.
// A non-positive timeout falls back to the standard one.
func NewHTTPClientWithTimeout(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = httpTimeout
	}
	return &http.Client{Timeout: timeout}
}

// DefaultHeaders returns the headers sent with every publisher request.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent": buildinfo.UserAgent(),
		"Accept":     "application/json, application/zip;q=0.9, */*;q=0.8",
	}
}
