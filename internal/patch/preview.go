package patch

import (
	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/resolve"
)

// UnitStatus classifies one file's preview block.
type UnitStatus int

const (
	// UnitOK: original content resolved, diff applies against it.
	UnitOK UnitStatus = iota
	// UnitNewFile: the record creates a file; missing original expected.
	UnitNewFile
	// UnitDeleted: the record deletes a file.
	UnitDeleted
	// UnitWarning: original not found without a creation/deletion marker;
	// treated as empty.
	UnitWarning
	// UnitError: resolution failed for a reason other than nonexistence.
	UnitError
)

// Unit pairs a diff record with its resolution outcome for rendering.
type Unit struct {
	Path     string
	Record   Record
	Resolved *models.ResolvedFile // nil when the path was never requested
	Status   UnitStatus
	Note     string
}

// BuildPreview maps records to preview units using the resolver's output.
// Units come back in record order.
func BuildPreview(records []Record, resolved map[string]*models.ResolvedFile) []Unit {
	units := make([]Unit, 0, len(records))
	for _, rec := range records {
		units = append(units, classify(rec, resolved[rec.LookupKey()]))
	}
	return units
}

func classify(rec Record, rf *models.ResolvedFile) Unit {
	u := Unit{Path: rec.LookupKey(), Record: rec, Resolved: rf}

	if rf != nil && rf.Outcome == models.OutcomeError && !resolve.IsNotFound(rf.Err) {
		u.Status = UnitError
		u.Note = rf.Err
		return u
	}

	missing := rf == nil ||
		rf.Outcome == models.OutcomeNotFound ||
		(rf.Outcome == models.OutcomeError && resolve.IsNotFound(rf.Err))

	switch {
	case missing && rec.IsCreation():
		u.Status = UnitNewFile
		u.Note = "new file"
	case rec.IsDeletion():
		u.Status = UnitDeleted
		u.Note = "deleted"
	case missing:
		u.Status = UnitWarning
		u.Note = "original not found, treated as empty"
	default:
		u.Status = UnitOK
	}
	return u
}
