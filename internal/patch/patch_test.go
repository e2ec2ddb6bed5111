package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simplePatch = `--- a/foo.txt
+++ b/foo.txt
@@ -1,1 +1,1 @@
-old
+new
`

const multiFilePatch = `--- a/foo.txt
+++ b/foo.txt
@@ -1,2 +1,2 @@
 context
-old
+new
--- /dev/null
+++ b/bar.txt
@@ -0,0 +1,1 @@
+created
--- a/baz.txt
+++ /dev/null
@@ -1,1 +0,0 @@
-going away
`

func TestParse_Empty(t *testing.T) {
	records, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = Parse("   \n\t")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_SingleFile(t *testing.T) {
	records, err := Parse(simplePatch)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "a/foo.txt", rec.OldPath)
	assert.Equal(t, "b/foo.txt", rec.NewPath)
	require.Len(t, rec.Hunks, 1)

	lines := rec.Hunks[0].Lines
	require.Len(t, lines, 2)
	assert.Equal(t, Line{Kind: LineRemove, Text: "old"}, lines[0])
	assert.Equal(t, Line{Kind: LineAdd, Text: "new"}, lines[1])
}

func TestParse_CreationAndDeletionSentinels(t *testing.T) {
	records, err := Parse(multiFilePatch)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.False(t, records[0].IsCreation())
	assert.False(t, records[0].IsDeletion())

	assert.True(t, records[1].IsCreation())
	assert.Equal(t, "bar.txt", records[1].LookupKey())

	assert.True(t, records[2].IsDeletion())
	assert.Equal(t, "baz.txt", records[2].LookupKey())
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "foo.txt", Strip("a/foo.txt"))
	assert.Equal(t, "foo.txt", Strip("b/foo.txt"))
	assert.Equal(t, "src/foo.txt", Strip("a/src/foo.txt"))
	assert.Equal(t, "noprefix.txt", Strip("noprefix.txt"))
	assert.Equal(t, NullPath, Strip(NullPath))
}

func TestRequiredPaths(t *testing.T) {
	records, err := Parse(multiFilePatch)
	require.NoError(t, err)

	// Creations contribute nothing; old paths are stripped and deduped.
	assert.Equal(t, []string{"baz.txt", "foo.txt"}, RequiredPaths(records))
}

func TestRequiredPaths_SimplePatch(t *testing.T) {
	records, err := Parse(simplePatch)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.txt"}, RequiredPaths(records))
}

func TestClassifyLine_DefensiveDefault(t *testing.T) {
	// Unknown markers classify as context, never an error.
	l := classifyLine("~weird")
	assert.Equal(t, LineContext, l.Kind)
	assert.Equal(t, "~weird", l.Text)

	l = classifyLine("\\ No newline at end of file")
	assert.Equal(t, LineNoNewline, l.Kind)
}
