// Package patch analyzes unified-diff documents: which files a patch
// needs, how each diff record maps onto resolved content, and a
// line-classified preview. Hunk parsing itself is delegated to
// sourcegraph/go-diff; nothing here implements a diff algorithm.
package patch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// NullPath is the unified-diff sentinel for "this side does not exist",
// marking creations and deletions.
const NullPath = "/dev/null"

// LineKind classifies one hunk line by its leading marker.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdd
	LineRemove
	// LineNoNewline is the trailing "\ No newline at end of file"
	// annotation.
	LineNoNewline
)

// Line is one classified hunk line, marker stripped.
type Line struct {
	Kind LineKind
	Text string
}

// Hunk is a contiguous block of classified lines.
type Hunk struct {
	Header string
	Lines  []Line
}

// Record is one file's worth of patch information. Old and new paths are
// kept as parsed, prefixes included; use Strip and LookupKey for
// normalized forms.
type Record struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// IsNull reports whether a diff path is the nonexistence sentinel.
func IsNull(p string) bool {
	return p == "" || p == NullPath
}

// IsCreation reports whether the record creates a new file.
func (r Record) IsCreation() bool { return IsNull(r.OldPath) }

// IsDeletion reports whether the record deletes a file.
func (r Record) IsDeletion() bool { return IsNull(r.NewPath) }

// Strip removes the conventional two-character "a/" or "b/" prefix from a
// diff path. The sentinel is returned unchanged.
func Strip(p string) string {
	if IsNull(p) {
		return p
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// LookupKey is the relative path a record's original content is resolved
// under: the stripped old path, or the stripped new path for creations.
func (r Record) LookupKey() string {
	if !IsNull(r.OldPath) {
		return Strip(r.OldPath)
	}
	return Strip(r.NewPath)
}

// Parse converts raw patch text into records. Empty input parses to no
// records, which is not an error.
func Parse(patchText string) ([]Record, error) {
	if strings.TrimSpace(patchText) == "" {
		return nil, nil
	}

	fds, err := diff.ParseMultiFileDiff([]byte(patchText))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}

	records := make([]Record, 0, len(fds))
	for _, fd := range fds {
		rec := Record{OldPath: fd.OrigName, NewPath: fd.NewName}
		for _, h := range fd.Hunks {
			hunk := Hunk{Header: h.Section}
			for _, raw := range strings.Split(strings.TrimRight(string(h.Body), "\n"), "\n") {
				hunk.Lines = append(hunk.Lines, classifyLine(raw))
			}
			rec.Hunks = append(rec.Hunks, hunk)
		}
		records = append(records, rec)
	}
	return records, nil
}

// classifyLine maps a raw hunk line to its class by the leading marker:
// '+' add, '-' remove, space context, backslash the no-newline
// annotation. Any other marker is treated as context, never an error.
func classifyLine(raw string) Line {
	if raw == "" {
		return Line{Kind: LineContext}
	}
	switch raw[0] {
	case '+':
		return Line{Kind: LineAdd, Text: raw[1:]}
	case '-':
		return Line{Kind: LineRemove, Text: raw[1:]}
	case ' ':
		return Line{Kind: LineContext, Text: raw[1:]}
	case '\\':
		return Line{Kind: LineNoNewline, Text: strings.TrimSpace(raw[1:])}
	default:
		return Line{Kind: LineContext, Text: raw}
	}
}

// RequiredPaths returns the deduplicated, sorted set of relative paths
// whose original content a patch needs: every record's stripped old path,
// skipping creations.
func RequiredPaths(records []Record) []string {
	seen := map[string]struct{}{}
	for _, r := range records {
		if r.IsCreation() {
			continue
		}
		seen[Strip(r.OldPath)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
