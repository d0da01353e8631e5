// CLAUDE:SUMMARY HTTP surface: chi router with POST /v1/export/{format}, journal listing, artifact download and health check behind the shield middleware stack.
package bookexport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/bookpress/bookexport/internal/journal"
	"github.com/hazyhaar/bookpress/horosafe"
	"github.com/hazyhaar/bookpress/shield"
)

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// MaxBody caps request bodies. Default: 32 MiB.
	MaxBody int64
	// APIKeyHash is a bcrypt hash; empty disables authentication.
	APIKeyHash string
}

// NewHandler returns the HTTP API of e:
//
//	POST /v1/export/{format}     Request JSON → file
//	GET  /v1/formats             supported formats
//	GET  /v1/exports?limit=N     journal, newest first
//	GET  /v1/exports/{id}/file   stored artifact of an export
//	GET  /healthz
func NewHandler(e *Exporter, opts HandlerOptions) http.Handler {
	if opts.MaxBody <= 0 {
		opts.MaxBody = 32 << 20
	}
	r := chi.NewRouter()
	for _, mw := range shield.Stack(shield.Options{
		MaxBody:    opts.MaxBody,
		APIKeyHash: opts.APIKeyHash,
		Public:     []string{"/healthz"},
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/formats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"formats": Formats()})
	})
	r.Post("/v1/export/{format}", e.handleExport)
	r.Get("/v1/exports", e.handleRecent)
	r.Get("/v1/exports/{id}/file", e.handleArtifact)
	return r
}

func (e *Exporter) handleExport(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())

	format, ok := ParseFormat(chi.URLParam(r, "format"))
	if !ok {
		writeError(w, &ExportError{Kind: ErrUnsupportedFormat, Format: Format(chi.URLParam(r, "format"))})
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large", "kind": "invalid_input"})
			return
		}
		writeError(w, invalid("body", "is not valid JSON: "+err.Error()))
		return
	}
	doc, err := req.Document(e.cfg.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := e.Export(r.Context(), doc, format)
	if err != nil {
		log.Warn("export request failed", "format", format, "error", err)
		writeError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("X-Export-ID", res.ID)
	h.Set("X-Omitted-Assets", strconv.Itoa(len(res.Omitted)))
	if res.ArtifactKey != "" {
		h.Set("X-Artifact-Key", res.ArtifactKey)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func (e *Exporter) handleRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := e.Recent(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": entries})
}

func (e *Exporter) handleArtifact(w http.ResponseWriter, r *http.Request) {
	rc, entry, err := e.Artifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	format := Format(entry.Format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", horosafe.Slug(entry.Title)+"."+format.Ext()))
	if _, err := io.Copy(w, rc); err != nil {
		shield.GetLogger(r.Context()).Warn("artifact download interrupted", "export_id", entry.ID, "error", err)
	}
}

// statusOf maps an error onto its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNoJournal), errors.Is(err, ErrNoArtifact), errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := KindName(err)
	if statusOf(err) == http.StatusNotFound {
		kind = "not_found"
	}
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error(), "kind": kind})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
