package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/davell/repopatch/internal/patch"
)

func (s *Server) applyPatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DirectoryPath string `json:"directoryPath"`
		PatchContent  string `json:"patchContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	baseDir, err := validatePath(req.DirectoryPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid directory path: "+err.Error())
		return
	}
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, "Provided path is not a directory")
		return
	}
	if strings.TrimSpace(req.PatchContent) == "" {
		writeError(w, http.StatusBadRequest, "Patch content cannot be empty")
		return
	}

	// Hand the patch text to the patch tool on stdin, run inside the
	// target directory. -p1 matches the a/ b/ prefix convention.
	cmd := exec.CommandContext(r.Context(), s.patchCmd, "-p1", "--verbose")
	cmd.Dir = baseDir
	cmd.Stdin = strings.NewReader(req.PatchContent)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Info("applying patch", "dir", baseDir)
	runErr := cmd.Run()

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			s.logger.Error("failed to run patch command", "err", runErr)
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to execute patch command: %v. Is %q installed and in PATH?", runErr, s.patchCmd))
			return
		}
	}

	details := []string{fmt.Sprintf("Patch command exit code: %d", cmd.ProcessState.ExitCode())}
	if stderr.Len() > 0 {
		details = append(details, "Stderr:\n"+stderr.String())
	}
	if stdout.Len() > 0 {
		details = append(details, "Stdout:\n"+stdout.String())
	}

	if runErr != nil {
		s.logger.Error("patch command failed", "exit", cmd.ProcessState.ExitCode(), "stderr", stderr.String())
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":      false,
			"error":        "Patch command failed to apply.",
			"details":      details,
			"appliedFiles": []string{},
		})
		return
	}

	// Parse the patch only after the command succeeded, to list the
	// affected files.
	applied := []string{}
	records, parseErr := patch.Parse(req.PatchContent)
	if parseErr != nil {
		s.logger.Warn("patch applied but content could not be re-parsed", "err", parseErr)
		details = append(details, "Warning: Failed to list affected files due to patch parse error: "+parseErr.Error())
	} else {
		for _, rec := range records {
			if rec.IsDeletion() {
				applied = append(applied, patch.Strip(rec.OldPath)+" (deleted)")
			} else {
				applied = append(applied, patch.Strip(rec.NewPath))
			}
		}
	}

	message := "Patch applied successfully."
	if hasPatchWarnings(stderr.String()) {
		s.logger.Warn("patch succeeded with warnings", "stderr", stderr.String())
		message = "Patch applied successfully, but with warnings."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      message,
		"appliedFiles": applied,
		"details":      details,
	})
}

func hasPatchWarnings(stderr string) bool {
	if stderr == "" {
		return false
	}
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"fail", "error", "reject", "warning"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
