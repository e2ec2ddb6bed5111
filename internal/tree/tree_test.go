package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davell/repopatch/internal/models"
)

func TestInsert_BuildsNestedFolders(t *testing.T) {
	root := map[string]*models.TreeNode{}

	c := Insert(root, "src/app/main.go", true)
	require.Nil(t, c)

	src, ok := root["src"]
	require.True(t, ok)
	assert.Equal(t, models.NodeFolder, src.Type)
	assert.Equal(t, "src", src.Path)

	app, ok := src.Children["app"]
	require.True(t, ok)
	assert.Equal(t, "src/app", app.Path)

	file, ok := app.Children["main.go"]
	require.True(t, ok)
	assert.Equal(t, models.NodeFile, file.Type)
	assert.Equal(t, "src/app/main.go", file.Path)
	assert.Nil(t, file.Children)
}

func TestInsert_NormalizesEmptySegments(t *testing.T) {
	root := map[string]*models.TreeNode{}

	require.Nil(t, Insert(root, "/a//b/c.txt/", true))

	a := root["a"]
	require.NotNil(t, a)
	b := a.Children["b"]
	require.NotNil(t, b)
	file := b.Children["c.txt"]
	require.NotNil(t, file)
	assert.Equal(t, "a/b/c.txt", file.Path)
}

func TestInsert_EmptyPathIsNoop(t *testing.T) {
	root := map[string]*models.TreeNode{}
	assert.Nil(t, Insert(root, "", true))
	assert.Nil(t, Insert(root, "///", true))
	assert.Empty(t, root)
}

func TestInsert_MergesIntoExistingFolder(t *testing.T) {
	root := map[string]*models.TreeNode{}
	require.Nil(t, Insert(root, "pkg/a.go", true))
	require.Nil(t, Insert(root, "pkg/b.go", true))

	pkg := root["pkg"]
	require.NotNil(t, pkg)
	assert.Len(t, pkg.Children, 2)
}

func TestInsert_FileOverFolderConflict(t *testing.T) {
	root := map[string]*models.TreeNode{}
	require.Nil(t, Insert(root, "pkg/a.go", true))

	c := Insert(root, "pkg", true)
	require.NotNil(t, c)
	assert.Equal(t, ConflictFileOverFolder, c.Kind)
	assert.Equal(t, "pkg", c.Path)

	// Folder survives untouched.
	assert.Equal(t, models.NodeFolder, root["pkg"].Type)
	assert.Len(t, root["pkg"].Children, 1)
}

func TestInsert_FileInPathConflict(t *testing.T) {
	root := map[string]*models.TreeNode{}
	require.Nil(t, Insert(root, "README", true))

	c := Insert(root, "README/nested.txt", true)
	require.NotNil(t, c)
	assert.Equal(t, ConflictFileInPath, c.Kind)
	assert.Equal(t, "README", c.At)

	// The subtree insertion aborted; README is still a file.
	assert.Equal(t, models.NodeFile, root["README"].Type)
}

func TestInsert_DuplicateFileIsIdempotent(t *testing.T) {
	root := map[string]*models.TreeNode{}
	require.Nil(t, Insert(root, "a.txt", true))
	require.Nil(t, Insert(root, "a.txt", true))
	assert.Len(t, root, 1)
}

func TestInsert_ExplicitFolder(t *testing.T) {
	root := map[string]*models.TreeNode{}
	require.Nil(t, Insert(root, "empty/dir", false))

	dir := root["empty"].Children["dir"]
	require.NotNil(t, dir)
	assert.Equal(t, models.NodeFolder, dir.Type)
	assert.Empty(t, dir.Children)

	// Inserting the folder again merges.
	require.Nil(t, Insert(root, "empty/dir", false))
	require.Nil(t, Insert(root, "empty/dir/x.txt", true))
	assert.Len(t, dir.Children, 1)
}

// Insertion order must not change the resulting tree shape when the
// relative order of conflicting entries is preserved.
func TestFromPaths_PermutationIsomorphic(t *testing.T) {
	a := []string{"b/x.txt", "a/y.txt", "a/z/deep.txt", "top.txt"}
	b := []string{"top.txt", "a/z/deep.txt", "b/x.txt", "a/y.txt"}

	ta, ca := FromPaths(a)
	tb, cb := FromPaths(b)

	assert.Empty(t, ca)
	assert.Empty(t, cb)
	assert.Equal(t, ta, tb)
}

func TestFromPaths_ReportsConflicts(t *testing.T) {
	root, conflicts := FromPaths([]string{"dir/file.txt", "dir/file.txt/impossible"})
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictFileInPath, conflicts[0].Kind)
	assert.NotNil(t, root["dir"])
}

func TestFiles_ListsAllFilePaths(t *testing.T) {
	root, _ := FromPaths([]string{"b/x.txt", "a/y.txt", "top.txt"})
	assert.Equal(t, []string{"a/y.txt", "b/x.txt", "top.txt"}, Files(root))
}
