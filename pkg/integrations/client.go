package integrations

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/observability"
)

// maxErrorDrain bounds how much of a rejected response body is discarded
// before closing, so keep-alive connections can be reused.
const maxErrorDrain = 64 << 10

// Client provides shared HTTP functionality for publisher API clients.
// It applies default headers and classifies failures; it never retries.
//
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// Response is an open response with a 2xx status.
// The caller must close Body.
type Response struct {
	Body io.ReadCloser
	// URL is the final request URL after redirects.
	URL *url.URL
	// ContentLength is -1 when unknown.
	ContentLength int64
}

// NewClient creates a Client using httpClient and the given default headers.
// If httpClient is nil, [NewHTTPClient] is used.
// Pass nil for headers if no default headers are needed.
func NewClient(httpClient *http.Client, headers map[string]string) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		http:    httpClient,
		headers: headers,
	}
}

// Open performs a single HTTP GET and returns the open response.
//
// Returns:
//   - an INVALID_INPUT error if rawURL is not an absolute http(s) URL
//   - a TRANSPORT_ERROR if the request could not be completed
//   - an HTTP_STATUS error for any status outside 200-299
func (c *Client) Open(ctx context.Context, rawURL string) (*Response, error) {
	if err := errs.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "build request for %s", rawURL)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, errs.Transport(rawURL, err)
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(rawURL, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorDrain))
		resp.Body.Close()
		return nil, err
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return &Response{
		Body:          resp.Body,
		URL:           final,
		ContentLength: resp.ContentLength,
	}, nil
}

// GetBytes performs a single HTTP GET and returns the full response body.
// A failure while reading the body is reported as a TRANSPORT_ERROR.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transport(rawURL, err)
	}
	return data, nil
}

func checkStatus(rawURL string, code int) error {
	if code >= 200 && code <= 299 {
		return nil
	}
	return errs.HTTPStatus(rawURL, code)
}
