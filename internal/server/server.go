// Package server implements Reeves' HTTP surface: a single binary search
// endpoint consumed by the browser front-end, plus a static asset
// fallback. It never touches the Index Store directly — every request is
// served through the Query/Ingestion API facade.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
	"github.com/reeves-dev/reeves/internal/search"
	"github.com/reeves-dev/reeves/internal/store"
)

// searcher is the minimal surface the server needs from the Query API
// facade; satisfied by *reeves.Reeves.
type searcher interface {
	Search(ctx context.Context, paramsSearch []string, retSearch *string) ([]search.Result, error)
}

// Config configures the HTTP server.
type Config struct {
	// StaticRoot is the directory of bundled static assets. Any request
	// path that doesn't resolve to a file under it falls back to
	// index.html, matching a single-page browser front-end.
	StaticRoot string
	// RequestSizeCapBytes rejects oversized POST /reeves/search bodies.
	RequestSizeCapBytes int64
}

// Server is the net/http handler wiring the search endpoint and static
// asset fallback.
type Server struct {
	cfg    Config
	search searcher
	log    *slog.Logger
	mux    *http.ServeMux
}

// New builds a Server ready to be passed to http.ListenAndServe (or
// mounted under a larger mux via Handler()).
func New(cfg Config, search searcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, search: search, log: log}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/reeves/search", s.handleSearch)
	s.mux.HandleFunc("/", s.handleStatic)
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeBadRequest(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limited := io.LimitReader(r.Body, s.cfg.RequestSizeCapBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		s.writeBadRequest(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > s.cfg.RequestSizeCapBytes {
		s.writeBadRequest(w, http.StatusBadRequest, "request too large")
		return
	}

	req, err := decodeRequest(body)
	if err != nil {
		s.writeBadRequest(w, http.StatusBadRequest, "invalid request encoding")
		return
	}

	var params []string
	if req.Params != nil {
		params = *req.Params
	}

	results, err := s.search.Search(r.Context(), params, req.Ret)
	if err != nil {
		s.log.Error("search failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	details := make([]store.FnDetail, len(results))
	for i, res := range results {
		details[i] = res.FnDetail
	}

	resp, err := encodeResponse(SearchResponse{FnDetails: details})
	if err != nil {
		s.log.Error("encode search response", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(status)
	_, _ = w.Write(encodeError(msg))
}

// writeBadRequest is writeError for the 4xx paths: it additionally
// constructs the typed BadRequest error category so a caller collecting
// metrics or logs on ReevesError sees 4xx failures classified the same
// way StoreError/QueryError are.
func (s *Server) writeBadRequest(w http.ResponseWriter, status int, msg string) {
	err := reeveserrors.BadRequest(msg)
	s.log.Warn("rejected request", "error", err, "status", status)
	s.writeError(w, status, msg)
}

// handleStatic serves a file from StaticRoot, falling back to
// index.html for any path that doesn't resolve to a real file — the
// routing convention a single-page browser front-end expects.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.cfg.StaticRoot == "" {
		http.NotFound(w, r)
		return
	}

	root, err := filepath.Abs(s.cfg.StaticRoot)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	clean := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	target := filepath.Join(root, clean)

	// Reject anything that escaped StaticRoot (e.g. a "../"-laden path);
	// filepath.Join alone doesn't guarantee containment.
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		http.NotFound(w, r)
		return
	}

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		http.ServeFile(w, r, target)
		return
	}

	http.ServeFile(w, r, filepath.Join(root, "index.html"))
}

// healthJSON is a tiny liveness payload; unrelated to the binary search
// envelope, kept as plain JSON since it's meant for humans and uptime
// checks, not the browser front-end's search client.
type healthJSON struct {
	Status string `json:"status"`
}

// HandleHealth can be mounted separately by callers that want a
// liveness endpoint distinct from the static asset fallback.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthJSON{Status: "ok"})
}
