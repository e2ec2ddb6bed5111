package models

// Outcome classifies the result of resolving one file path.
type Outcome string

const (
	// OutcomeOK means content was retrieved.
	OutcomeOK Outcome = "ok"
	// OutcomeNotFound means the file does not exist at the source. This is
	// a normal outcome: the patch may be creating that file.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeError means retrieval failed (transport or storage fault).
	OutcomeError Outcome = "error"
)

// ResolvedFile is the result of resolving one requested path against a
// source. Values are never mutated after creation.
type ResolvedFile struct {
	Path    string
	Content string
	Outcome Outcome
	Err     string // set when Outcome is OutcomeError
}
