package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davell/repopatch/internal/registry"
	"github.com/davell/repopatch/internal/resolve"
)

const cmdTestPatch = `--- a/README.md
+++ b/README.md
@@ -1 +1,2 @@
 hello
+world
`

func TestPreviewOnce_LocalSource(t *testing.T) {
	testEnv(t)

	sourceName = "snap"
	require.NoError(t, sourceAddLocalRun(writeSourceFolder(t), false))
	sourceName = ""

	patchPath := filepath.Join(t.TempDir(), "change.patch")
	require.NoError(t, os.WriteFile(patchPath, []byte(cmdTestPatch), 0644))

	s := testStore(t)
	ctx := context.Background()
	reg, err := registry.Load(ctx, s)
	require.NoError(t, err)

	// Local resolution never touches the network, so no client is needed.
	resolver := resolve.New(s, reg, nil)

	out := &bytes.Buffer{}
	ui.Out = out
	require.NoError(t, previewOnce(ctx, resolver, reg.Selected(), patchPath))

	assert.Contains(t, out.String(), "README.md")
	assert.Contains(t, out.String(), "+world")
	assert.Contains(t, out.String(), "success")
}

func TestPreviewOnce_EmptyPatch(t *testing.T) {
	testEnv(t)

	sourceName = "snap"
	require.NoError(t, sourceAddLocalRun(writeSourceFolder(t), false))
	sourceName = ""

	patchPath := filepath.Join(t.TempDir(), "empty.patch")
	require.NoError(t, os.WriteFile(patchPath, []byte("  \n"), 0644))

	s := testStore(t)
	ctx := context.Background()
	reg, err := registry.Load(ctx, s)
	require.NoError(t, err)
	resolver := resolve.New(s, reg, nil)

	out := &bytes.Buffer{}
	ui.Out = out
	require.NoError(t, previewOnce(ctx, resolver, reg.Selected(), patchPath))
	assert.Contains(t, out.String(), "nothing to preview")
}

func TestReadPatch_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.patch")
	require.NoError(t, os.WriteFile(p, []byte(cmdTestPatch), 0644))

	got, err := readPatch(p)
	require.NoError(t, err)
	assert.Equal(t, cmdTestPatch, got)
}

func TestReadPatch_MissingFile(t *testing.T) {
	_, err := readPatch(filepath.Join(t.TempDir(), "gone.patch"))
	assert.Error(t, err)
}
