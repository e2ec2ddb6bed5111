package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davell/repopatch/internal/models"
)

func ok(path, content string) *models.ResolvedFile {
	return &models.ResolvedFile{Path: path, Content: content, Outcome: models.OutcomeOK}
}

func notFound(path string) *models.ResolvedFile {
	return &models.ResolvedFile{Path: path, Outcome: models.OutcomeNotFound}
}

func errFile(path, msg string) *models.ResolvedFile {
	return &models.ResolvedFile{Path: path, Outcome: models.OutcomeError, Err: msg}
}

func TestBuildPreview_OKFile(t *testing.T) {
	records, err := Parse(simplePatch)
	require.NoError(t, err)

	units := BuildPreview(records, map[string]*models.ResolvedFile{
		"foo.txt": ok("foo.txt", "old\n"),
	})
	require.Len(t, units, 1)
	assert.Equal(t, UnitOK, units[0].Status)
	assert.Empty(t, units[0].Note)
}

func TestBuildPreview_NewFileSentinelNotAnError(t *testing.T) {
	rec := Record{OldPath: NullPath, NewPath: "b/bar.txt"}

	// Resolution not_found for a creation is expected.
	units := BuildPreview([]Record{rec}, map[string]*models.ResolvedFile{
		"bar.txt": notFound("bar.txt"),
	})
	require.Len(t, units, 1)
	assert.Equal(t, UnitNewFile, units[0].Status)

	// Same when the path was never resolved at all.
	units = BuildPreview([]Record{rec}, nil)
	assert.Equal(t, UnitNewFile, units[0].Status)

	p := Render(units, nil)
	assert.Empty(t, p.ErrorFiles)
	assert.Equal(t, StatusSuccess, p.Status)
}

func TestBuildPreview_Deletion(t *testing.T) {
	rec := Record{OldPath: "a/baz.txt", NewPath: NullPath}
	units := BuildPreview([]Record{rec}, map[string]*models.ResolvedFile{
		"baz.txt": ok("baz.txt", "bye\n"),
	})
	require.Len(t, units, 1)
	assert.Equal(t, UnitDeleted, units[0].Status)
}

func TestBuildPreview_MissingOriginalWarns(t *testing.T) {
	rec := Record{OldPath: "a/foo.txt", NewPath: "b/foo.txt"}
	units := BuildPreview([]Record{rec}, map[string]*models.ResolvedFile{
		"foo.txt": notFound("foo.txt"),
	})
	require.Len(t, units, 1)
	assert.Equal(t, UnitWarning, units[0].Status)
	assert.Equal(t, "original not found, treated as empty", units[0].Note)
}

func TestBuildPreview_ResolutionError(t *testing.T) {
	rec := Record{OldPath: "a/foo.txt", NewPath: "b/foo.txt"}
	units := BuildPreview([]Record{rec}, map[string]*models.ResolvedFile{
		"foo.txt": errFile("foo.txt", "permission denied"),
	})
	require.Len(t, units, 1)
	assert.Equal(t, UnitError, units[0].Status)
	assert.Equal(t, "permission denied", units[0].Note)
}

func TestBuildPreview_NotFoundShapedErrorIsBenign(t *testing.T) {
	rec := Record{OldPath: "a/foo.txt", NewPath: "b/foo.txt"}
	units := BuildPreview([]Record{rec}, map[string]*models.ResolvedFile{
		"foo.txt": errFile("foo.txt", "Invalid path: No such file or directory"),
	})
	require.Len(t, units, 1)
	assert.Equal(t, UnitWarning, units[0].Status)
}

// --- Render ---

func TestRender_SimplePatchLines(t *testing.T) {
	records, err := Parse(simplePatch)
	require.NoError(t, err)

	units := BuildPreview(records, map[string]*models.ResolvedFile{
		"foo.txt": ok("foo.txt", "old\n"),
	})
	p := Render(units, nil)

	require.Len(t, p.Files, 1)
	block := p.Files[0]
	assert.Equal(t, "foo.txt", block.Path)
	require.Len(t, block.Lines, 2)
	assert.Equal(t, Line{Kind: LineRemove, Text: "old"}, block.Lines[0])
	assert.Equal(t, Line{Kind: LineAdd, Text: "new"}, block.Lines[1])
	assert.Equal(t, StatusSuccess, p.Status)
	assert.Equal(t, "success", p.StatusText)
}

func TestRender_EmptyInput(t *testing.T) {
	p := Render(nil, nil)
	assert.Equal(t, StatusEmpty, p.Status)
	assert.Equal(t, "nothing to preview", p.StatusText)
	assert.Empty(t, p.Files)
}

func TestRender_DeletionOnlyPatch(t *testing.T) {
	units := BuildPreview([]Record{{OldPath: "a/gone.txt", NewPath: NullPath}}, nil)
	p := Render(units, nil)
	assert.Equal(t, StatusEmpty, p.Status)
	assert.Empty(t, p.Files)
}

func TestRender_ErrorsDominateStatus(t *testing.T) {
	recs := []Record{
		{OldPath: "a/good.txt", NewPath: "b/good.txt"},
		{OldPath: "a/bad.txt", NewPath: "b/bad.txt"},
	}
	units := BuildPreview(recs, map[string]*models.ResolvedFile{
		"good.txt": ok("good.txt", "x"),
		"bad.txt":  errFile("bad.txt", "permission denied"),
	})
	p := Render(units, []string{"bad.txt"})

	assert.Equal(t, StatusErrors, p.Status)
	assert.Contains(t, p.StatusText, "bad.txt")
	assert.Equal(t, []string{"bad.txt"}, p.ErrorFiles)
}

func TestRender_FetchFailuresWithoutPreviewErrors(t *testing.T) {
	recs := []Record{{OldPath: "a/good.txt", NewPath: "b/good.txt"}}
	units := BuildPreview(recs, map[string]*models.ResolvedFile{
		"good.txt": ok("good.txt", "x"),
	})

	// A fetch can fail for a path the diff semantics never flagged.
	p := Render(units, []string{"unrelated.txt"})
	assert.Equal(t, StatusFetchFailures, p.Status)
	assert.Equal(t, "generated, some fetches failed", p.StatusText)
}

func TestRender_ZeroHunkFileStillRendered(t *testing.T) {
	recs := []Record{{OldPath: "a/empty.txt", NewPath: "b/empty.txt"}}
	units := BuildPreview(recs, map[string]*models.ResolvedFile{
		"empty.txt": ok("empty.txt", ""),
	})
	p := Render(units, nil)

	require.Len(t, p.Files, 1)
	assert.True(t, p.Files[0].Empty)
	assert.Empty(t, p.Files[0].Lines)
}
