package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
	"github.com/matzehuels/mcmeta/pkg/store"
)

type fakeService struct {
	manifest    *mojang.VersionManifest
	manifestErr error
	versions    map[string]*mojang.VersionDocument
	versionErr  error
	store       store.Store
	refreshed   bool
}

func (f *fakeService) Manifest(_ context.Context, refresh bool) (*mojang.VersionManifest, error) {
	f.refreshed = refresh
	return f.manifest, f.manifestErr
}

func (f *fakeService) Version(_ context.Context, id string, refresh bool) (*mojang.VersionDocument, error) {
	f.refreshed = refresh
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	if err := errs.ValidateVersionID(id); err != nil {
		return nil, err
	}
	doc, ok := f.versions[id]
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "version %q is not listed in the manifest", id)
	}
	return doc, nil
}

func (f *fakeService) Store() store.Store { return f.store }

func newFakeService() *fakeService {
	return &fakeService{
		manifest: &mojang.VersionManifest{
			Latest: mojang.Latest{Release: "1.16.5", Snapshot: "21w03a"},
			Versions: []mojang.VersionSummary{
				{ID: "21w03a", Type: mojang.TypeSnapshot, URL: "https://meta.test/21w03a.json"},
				{ID: "1.16.5", Type: mojang.TypeRelease, URL: "https://meta.test/1.16.5.json"},
			},
		},
		versions: map[string]*mojang.VersionDocument{
			"1.16.5": {ID: "1.16.5", Type: mojang.TypeRelease, MainClass: "net.minecraft.client.main.Main"},
		},
	}
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	}
	return rec, body
}

func quietServer(svc Service) http.Handler {
	return NewServer(svc, WithLogger(log.New(io.Discard)))
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec, body := do(t, quietServer(newFakeService()), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestManifest(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	h := quietServer(svc)

	rec, body := do(t, h, http.MethodGet, "/v1/manifest")
	require.Equal(t, http.StatusOK, rec.Code)
	latest := body["latest"].(map[string]any)
	assert.Equal(t, "1.16.5", latest["release"])
	assert.Len(t, body["versions"], 2)
	assert.False(t, svc.refreshed)

	rec, _ = do(t, h, http.MethodGet, "/v1/manifest?refresh=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.refreshed)

	rec, body = do(t, h, http.MethodGet, "/v1/manifest?refresh=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "found", path: "/v1/versions/1.16.5", wantStatus: http.StatusOK},
		{name: "not listed", path: "/v1/versions/0.0.1", wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "escaped traversal", path: "/v1/versions/..%2Fetc", wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{
			name:       "upstream status",
			path:       "/v1/versions/1.16.5",
			err:        errs.HTTPStatus("https://meta.test/1.16.5.json", http.StatusServiceUnavailable),
			wantStatus: http.StatusBadGateway,
			wantCode:   "HTTP_STATUS",
		},
		{
			name:       "transport",
			path:       "/v1/versions/1.16.5",
			err:        errs.Transport("https://meta.test/1.16.5.json", errors.New("connection refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "TRANSPORT_ERROR",
		},
		{
			name:       "malformed body",
			path:       "/v1/versions/1.16.5",
			err:        errs.MalformedBody("https://meta.test/1.16.5.json", []byte("<html>"), errors.New("invalid character")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "MALFORMED_BODY",
		},
		{
			name:       "validation",
			path:       "/v1/versions/1.16.5",
			err:        errs.Validation("https://meta.test/1.16.5.json", errors.New("mainClass: is required")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "archive format",
			path:       "/v1/versions/1.16.5",
			err:        errs.ArchiveFormat("https://meta.test/x.zip", nil, "archive holds no version document"),
			wantStatus: http.StatusBadGateway,
			wantCode:   "ARCHIVE_FORMAT",
		},
		{
			name:       "archive io",
			path:       "/v1/versions/1.16.5",
			err:        errs.ArchiveIO("https://meta.test/x.zip", errors.New("no space left on device"), "write archive"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "ARCHIVE_IO",
		},
		{
			name:       "uncoded",
			path:       "/v1/versions/1.16.5",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
		{
			name:       "deadline",
			path:       "/v1/versions/1.16.5",
			err:        errs.Transport("https://meta.test/1.16.5.json", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TRANSPORT_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newFakeService()
			svc.versionErr = tt.err

			rec, body := do(t, quietServer(svc), http.MethodGet, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "1.16.5", body["id"])
				return
			}
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, rec.Header().Get(RequestIDHeader), body["request_id"])
		})
	}
}

func TestVersion_UpstreamStatusReported(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.versionErr = errs.HTTPStatus("https://meta.test/1.16.5.json", http.StatusForbidden)

	_, body := do(t, quietServer(svc), http.MethodGet, "/v1/versions/1.16.5")
	assert.EqualValues(t, http.StatusForbidden, body["upstream_status"])
}

func TestInternalErrorHidesDetails(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.manifestErr = errors.New("dial tcp 10.0.0.7:27017: secret topology")

	var logs bytes.Buffer
	h := NewServer(svc, WithLogger(log.New(&logs)))
	rec, body := do(t, h, http.MethodGet, "/v1/manifest")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["error"])
	assert.Contains(t, logs.String(), "secret topology")
}

func TestStored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newFakeService()
	h := quietServer(svc)

	rec, body := do(t, h, http.MethodGet, "/v1/stored")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "NOT_CONFIGURED", body["code"])

	st := store.NewMemoryStore()
	svc.store = st

	rec, body = do(t, h, http.MethodGet, "/v1/stored")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["versions"])
	assert.EqualValues(t, 0, body["count"])

	for _, id := range []string{"1.16.5", "1.14_combat-212796"} {
		require.NoError(t, st.PutVersion(ctx, &mojang.VersionDocument{ID: id, Type: "release", MainClass: "Main"}))
	}

	rec, body = do(t, h, http.MethodGet, "/v1/stored")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"1.14_combat-212796", "1.16.5"}, body["versions"])
	assert.EqualValues(t, 2, body["count"])

	rec, body = do(t, h, http.MethodGet, "/v1/stored/1.16.5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.16.5", body["id"])

	rec, body = do(t, h, http.MethodGet, "/v1/stored/1.12")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRouting(t *testing.T) {
	t.Parallel()
	h := quietServer(newFakeService())

	rec, body := do(t, h, http.MethodGet, "/v2/manifest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	rec, body = do(t, h, http.MethodPost, "/v1/manifest")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body["code"])
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	h := quietServer(newFakeService())

	rec, _ := do(t, h, http.MethodGet, "/healthz")
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	const supplied = "0b5a3c36-3f5e-4c0c-9d59-2f1c1b0f6a11"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, supplied)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, supplied, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\n")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not a uuid\n", rec.Header().Get(RequestIDHeader))
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	logger := log.New(&logs)
	logger.SetLevel(log.DebugLevel)

	h := NewServer(newFakeService(), WithLogger(logger))
	do(t, h, http.MethodGet, "/v1/versions/1.16.5")

	out := logs.String()
	assert.Contains(t, out, "/v1/versions/1.16.5")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "request_id=")
}

func TestServe(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", quietServer(newFakeService()), log.New(io.Discard), ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("Serve returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"ok"`))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_AddressInUse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	err := Serve(context.Background(), addr, quietServer(newFakeService()), log.New(io.Discard), nil)
	assert.Error(t, err)
}
