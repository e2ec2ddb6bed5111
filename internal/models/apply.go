package models

// ApplyResult is the outcome of submitting a patch to the apply service.
// AppliedFiles is populated even on overall failure so callers always
// know how much of the patch landed.
type ApplyResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	AppliedFiles []string `json:"appliedFiles,omitempty"`
	Error        string   `json:"error,omitempty"`
	Details      []string `json:"details,omitempty"`
}
