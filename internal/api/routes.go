package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mcmeta/pkg/buildinfo"
	errs "github.com/matzehuels/mcmeta/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// UpstreamStatus is the publisher's status for HTTP_STATUS failures.
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

// StoredResponse lists the releases held in the store.
type StoredResponse struct {
	Versions []string `json:"versions"`
	Count    int      `json:"count"`
}

type routes struct {
	svc    Service
	logger *log.Logger
}

func (rt *routes) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// manifest handles GET /v1/manifest[?refresh=true].
func (rt *routes) manifest(w http.ResponseWriter, r *http.Request) {
	refresh, ok := rt.refreshParam(w, r)
	if !ok {
		return
	}
	m, err := rt.svc.Manifest(r.Context(), refresh)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// version handles GET /v1/versions/{id}[?refresh=true].
func (rt *routes) version(w http.ResponseWriter, r *http.Request) {
	refresh, ok := rt.refreshParam(w, r)
	if !ok {
		return
	}
	doc, err := rt.svc.Version(r.Context(), chi.URLParam(r, "id"), refresh)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// storedList handles GET /v1/stored.
func (rt *routes) storedList(w http.ResponseWriter, r *http.Request) {
	st := rt.svc.Store()
	if st == nil {
		writeError(w, http.StatusNotImplemented, "NOT_CONFIGURED", "no store configured")
		return
	}
	ids, err := st.ListVersions(r.Context())
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, StoredResponse{Versions: ids, Count: len(ids)})
}

// storedVersion handles GET /v1/stored/{id}.
func (rt *routes) storedVersion(w http.ResponseWriter, r *http.Request) {
	st := rt.svc.Store()
	if st == nil {
		writeError(w, http.StatusNotImplemented, "NOT_CONFIGURED", "no store configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := errs.ValidateVersionID(id); err != nil {
		rt.fail(w, r, err)
		return
	}
	doc, err := st.GetVersion(r.Context(), id)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *routes) refreshParam(w http.ResponseWriter, r *http.Request) (bool, bool) {
	v := r.URL.Query().Get("refresh")
	if v == "" {
		return false, true
	}
	refresh, err := strconv.ParseBool(v)
	if err != nil {
		rt.fail(w, r, errs.New(errs.ErrCodeInvalidInput, "refresh must be a boolean, got %q", v))
		return false, false
	}
	return refresh, true
}

func (rt *routes) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:     errs.UserMessage(err),
		Code:      string(errs.GetCode(err)),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if resp.Code == "" {
		resp.Code = string(errs.ErrCodeInternal)
	}
	if errs.Is(err, errs.ErrCodeHTTPStatus) {
		resp.UpstreamStatus = errs.StatusCode(err)
	}
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed", "path", r.URL.Path, "code", resp.Code, "err", err)
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

// statusFor maps an error to the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// The client went away; the status is never seen.
		return 499
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	case errs.ErrCodeTransport, errs.ErrCodeHTTPStatus, errs.ErrCodeMalformedBody,
		errs.ErrCodeValidation, errs.ErrCodeArchiveFormat:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
