package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileResult is one file's entry in a batch response.
type fileResult struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// batchConcurrency caps how many files are read at once per request.
const batchConcurrency = 50

// validatePath canonicalizes a requested base path; the path must exist.
func validatePath(requested string) (string, error) {
	abs, err := filepath.Abs(requested)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %v", requested, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize path %q: %v", requested, err)
	}
	return resolved, nil
}

func readFileResult(path string) fileResult {
	resolved, err := validatePath(path)
	if err != nil {
		return fileResult{Error: "Invalid path: " + err.Error()}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return fileResult{Error: "Invalid path: " + err.Error()}
	}
	if info.IsDir() {
		return fileResult{Error: "Path is not a file"}
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fileResult{Error: "Failed to read file: " + err.Error()}
	}
	return fileResult{Success: true, Content: string(data)}
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Path parameter is required")
		return
	}

	res := readFileResult(path)
	if !res.Success {
		writeError(w, http.StatusBadRequest, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "content": res.Content})
}

func (s *Server) getFilesBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "Paths array is required and cannot be empty")
		return
	}

	// Reads complete in arbitrary order; the response is keyed by the
	// requested path so ordering never matters to the client.
	results := make(map[string]fileResult, len(req.Paths))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, batchConcurrency)
	)
	for _, p := range req.Paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()
			res := readFileResult(path)
			mu.Lock()
			results[path] = res
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "files": results})
}

func (s *Server) checkWritable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DirectoryPath string `json:"directoryPath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	baseDir, err := validatePath(req.DirectoryPath)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "writable": false, "error": "Invalid directory path: " + err.Error(),
		})
		return
	}
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "writable": false, "error": "Provided path is not a directory",
		})
		return
	}

	probe := filepath.Join(baseDir, fmt.Sprintf(".repopatch_writetest_%d", time.Now().UnixNano()))
	f, err := os.OpenFile(probe, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		s.logger.Info("writability probe failed", "dir", baseDir, "err", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "writable": false,
			"error": "Failed to create temporary test file (check permissions): " + err.Error(),
		})
		return
	}
	_ = f.Close()
	if err := os.Remove(probe); err != nil {
		s.logger.Warn("failed to delete writability probe", "path", probe, "err", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "writable": false,
			"error": "Failed to delete temporary test file: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "writable": true})
}
