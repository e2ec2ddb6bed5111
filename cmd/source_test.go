package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davell/repopatch/internal/registry"
	"github.com/davell/repopatch/internal/store"
)

// writeSourceFolder lays out a small folder to ingest.
func writeSourceFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main\n"), 0644))
	return dir
}

func TestSourceAddLocal_FolderIngested(t *testing.T) {
	testEnv(t)
	folder := writeSourceFolder(t)

	sourceName = ""
	require.NoError(t, sourceAddLocalRun(folder, false))

	s := testStore(t)
	reg, err := registry.Load(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, reg.Sources(), 1)

	src := reg.Selected()
	require.NotNil(t, src, "new source becomes the selection")
	assert.Equal(t, filepath.Base(folder), src.DisplayName)

	paths, err := s.ListFilePaths(context.Background(), src.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "src/main.go"}, paths)
}

func TestSourceAddLocal_NameFlag(t *testing.T) {
	testEnv(t)
	folder := writeSourceFolder(t)

	sourceName = "my-project"
	t.Cleanup(func() { sourceName = "" })
	require.NoError(t, sourceAddLocalRun(folder, false))

	s := testStore(t)
	reg, err := registry.Load(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "my-project", reg.Selected().DisplayName)
}

func TestSourceSelectAndRemove(t *testing.T) {
	testEnv(t)

	sourceName = "first"
	require.NoError(t, sourceAddLocalRun(writeSourceFolder(t), false))
	sourceName = "second"
	require.NoError(t, sourceAddLocalRun(writeSourceFolder(t), false))
	sourceName = ""

	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, sourceSelectRun("first"))
	reg, err := registry.Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "first", reg.Selected().DisplayName)

	// Removing the selection falls back to the first remaining source.
	require.NoError(t, sourceRemoveRun("first"))
	reg, err = registry.Load(ctx, s)
	require.NoError(t, err)
	require.Len(t, reg.Sources(), 1)
	assert.Equal(t, "second", reg.Selected().DisplayName)
}

func TestSourceRemove_UnknownRef(t *testing.T) {
	testEnv(t)

	err := sourceRemoveRun("nope")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSourceList_Empty(t *testing.T) {
	testEnv(t)

	assert.NoError(t, sourceListRun())
}

func TestSourceRefresh_LocalRejected(t *testing.T) {
	testEnv(t)

	sourceName = "snap"
	require.NoError(t, sourceAddLocalRun(writeSourceFolder(t), false))
	sourceName = ""

	err := sourceRefreshRun("snap")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "local source")
}

func TestResolveEndpoint_StoredBeatsDefault(t *testing.T) {
	testEnv(t)
	s := testStore(t)
	ctx := context.Background()

	// Default from viper when nothing is stored.
	endpoint, err := resolveEndpoint(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", endpoint)

	require.NoError(t, s.SetSetting(ctx, store.SettingEndpoint, "https://patches.example.com"))
	endpoint, err = resolveEndpoint(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "https://patches.example.com", endpoint)
}
