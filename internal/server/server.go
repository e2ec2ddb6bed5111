// Package server implements the repopatch HTTP API: directory listing,
// single and batched file content, patch application, and a connection
// probe. It is the serving side of the same wire contract
// internal/remote consumes.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Server provides the repopatch API handlers.
type Server struct {
	logger *slog.Logger
	port   int
	// patchCmd is the executable used to apply patches. Overridable in
	// tests.
	patchCmd string
}

// New creates a server.
func New(logger *slog.Logger, port int) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Server{logger: logger, port: port, patchCmd: "patch"}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/connect", s.connect)
	mux.HandleFunc("GET /api/directory", s.getDirectory)
	mux.HandleFunc("GET /api/file", s.getFile)
	mux.HandleFunc("POST /api/files", s.getFilesBatch)
	mux.HandleFunc("POST /api/apply_patch", s.applyPatch)
	mux.HandleFunc("POST /api/check_writable", s.checkWritable)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      s.port,
	})
}
