package mojang

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mcmeta/pkg/integrations"
)

// DefaultManifestURL is the publisher's canonical version manifest endpoint.
const DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// Client fetches and validates launcher metadata.
//
// Every method performs exactly one HTTP request and never retries. Methods
// share no mutable state, so a Client is safe for concurrent use.
type Client struct {
	*integrations.Client
	manifestURL string
	tempDir     string
	logger      *log.Logger
}

// Option configures a [Client].
type Option func(*clientOptions)

type clientOptions struct {
	manifestURL string
	httpClient  *http.Client
	tempDir     string
	logger      *log.Logger
}

// WithManifestURL overrides [DefaultManifestURL]. An empty url is ignored.
func WithManifestURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.manifestURL = url
		}
	}
}

// WithHTTPClient sets the HTTP client. Its timeout bounds every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTempDir sets the directory under which archive extraction creates its
// per-call scratch directories. Defaults to [os.TempDir].
func WithTempDir(dir string) Option {
	return func(o *clientOptions) { o.tempDir = dir }
}

// WithLogger sets the logger used for debug and audit messages.
func WithLogger(l *log.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a Client.
//
// The returned Client is safe for concurrent use.
func NewClient(opts ...Option) *Client {
	o := clientOptions{manifestURL: DefaultManifestURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return &Client{
		Client:      integrations.NewClient(o.httpClient, integrations.DefaultHeaders()),
		manifestURL: o.manifestURL,
		tempDir:     o.tempDir,
		logger:      o.logger,
	}
}

// ManifestURL returns the manifest endpoint this client fetches from.
func (c *Client) ManifestURL() string { return c.manifestURL }

// FetchManifest retrieves the version manifest from the configured URL.
//
// Returns:
//   - the validated manifest, releases in publisher order
//   - a TRANSPORT_ERROR if the request could not be completed
//   - an HTTP_STATUS error for non-2xx responses
//   - a MALFORMED_BODY error carrying the raw body if it is not valid JSON
//   - a VALIDATION_FAILED error if the manifest violates its schema or
//     references releases it does not list
func (c *Client) FetchManifest(ctx context.Context) (*VersionManifest, error) {
	c.logger.Debug("fetching version manifest", "url", c.manifestURL)

	body, err := c.GetBytes(ctx, c.manifestURL)
	if err != nil {
		return nil, err
	}

	m, err := ParseManifest(c.manifestURL, body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("loaded version manifest", "versions", len(m.Versions), "latest", m.Latest.Release)
	return m, nil
}

// FetchVersion retrieves a single version document from versionURL,
// typically a [VersionSummary.URL]. Errors are classified as in
// [Client.FetchManifest].
func (c *Client) FetchVersion(ctx context.Context, versionURL string) (*VersionDocument, error) {
	c.logger.Debug("fetching version document", "url", versionURL)

	body, err := c.GetBytes(ctx, versionURL)
	if err != nil {
		return nil, err
	}
	return ParseVersion(versionURL, body)
}
