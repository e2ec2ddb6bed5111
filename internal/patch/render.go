package patch

import (
	"fmt"
	"strings"
)

// Status is the aggregate outcome of a preview cycle.
type Status int

const (
	// StatusSuccess: every file previewed cleanly.
	StatusSuccess Status = iota
	// StatusErrors: at least one file carried an error annotation.
	StatusErrors
	// StatusFetchFailures: no preview-level errors, but some resolutions
	// failed during the cycle.
	StatusFetchFailures
	// StatusEmpty: nothing to preview. Not an error condition.
	StatusEmpty
)

// AnnotationKind tags a file header annotation.
type AnnotationKind int

const (
	AnnotationNone AnnotationKind = iota
	AnnotationInfo
	AnnotationWarning
	AnnotationError
)

// FileBlock is one file's rendered preview: a header, an optional
// annotation, and classified lines.
type FileBlock struct {
	Path       string
	Annotation string
	Kind       AnnotationKind
	Lines      []Line
	// Empty marks a block with no content changes; it still renders a
	// header plus a marker line, never silently omitted.
	Empty bool
}

// Preview is a fully rendered patch preview.
type Preview struct {
	Files      []FileBlock
	Status     Status
	StatusText string
	ErrorFiles []string
	Failures   []string
}

// Render turns preview units plus the cycle's resolution failures into a
// renderable preview with an aggregate status. Preview-level errors and
// resolver-level failures are considered separately: a fetch can fail for
// reasons independent of diff semantics.
func Render(units []Unit, failures []string) *Preview {
	p := &Preview{Failures: failures}

	nonDeletion := 0
	for _, u := range units {
		if !u.Record.IsDeletion() {
			nonDeletion++
		}
	}
	if len(units) == 0 || nonDeletion == 0 {
		p.Status = StatusEmpty
		p.StatusText = "nothing to preview"
		return p
	}

	for _, u := range units {
		block := FileBlock{Path: u.Path, Annotation: u.Note}
		switch u.Status {
		case UnitError:
			block.Kind = AnnotationError
			p.ErrorFiles = append(p.ErrorFiles, u.Path)
		case UnitWarning:
			block.Kind = AnnotationWarning
		case UnitNewFile, UnitDeleted:
			block.Kind = AnnotationInfo
		}

		for _, h := range u.Record.Hunks {
			block.Lines = append(block.Lines, h.Lines...)
		}
		block.Empty = len(block.Lines) == 0
		p.Files = append(p.Files, block)
	}

	switch {
	case len(p.ErrorFiles) > 0:
		p.Status = StatusErrors
		p.StatusText = fmt.Sprintf("generated with errors (%s)", strings.Join(p.ErrorFiles, ", "))
	case len(failures) > 0:
		p.Status = StatusFetchFailures
		p.StatusText = "generated, some fetches failed"
	default:
		p.Status = StatusSuccess
		p.StatusText = "success"
	}
	return p
}
