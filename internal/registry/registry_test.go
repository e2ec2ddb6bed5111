package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func addSource(t *testing.T, r *Registry, name string) *models.Source {
	t.Helper()
	src := &models.Source{Kind: models.SourceKindLocal, DisplayName: name}
	require.NoError(t, r.Add(context.Background(), src))
	return src
}

func TestLoad_Empty(t *testing.T) {
	r, err := Load(context.Background(), newTestStore(t))
	require.NoError(t, err)
	assert.Empty(t, r.Sources())
	assert.Nil(t, r.Selected())
}

func TestAdd_BecomesSelected(t *testing.T) {
	r, err := Load(context.Background(), newTestStore(t))
	require.NoError(t, err)

	first := addSource(t, r, "first")
	assert.Equal(t, first.ID, r.SelectedID())

	second := addSource(t, r, "second")
	assert.Equal(t, second.ID, r.SelectedID())
}

func TestRemove_SelectedFallsBackToFirst(t *testing.T) {
	ctx := context.Background()
	r, err := Load(ctx, newTestStore(t))
	require.NoError(t, err)

	first := addSource(t, r, "first")
	second := addSource(t, r, "second")
	require.Equal(t, second.ID, r.SelectedID())

	require.NoError(t, r.Remove(ctx, second.ID))
	assert.Equal(t, first.ID, r.SelectedID())

	require.NoError(t, r.Remove(ctx, first.ID))
	assert.Empty(t, r.SelectedID())
	assert.Nil(t, r.Selected())
}

func TestRemove_UnselectedKeepsSelection(t *testing.T) {
	ctx := context.Background()
	r, err := Load(ctx, newTestStore(t))
	require.NoError(t, err)

	first := addSource(t, r, "first")
	second := addSource(t, r, "second")

	require.NoError(t, r.Remove(ctx, first.ID))
	assert.Equal(t, second.ID, r.SelectedID())
}

func TestLoad_RestoresPersistedSelection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	r, err := Load(ctx, st)
	require.NoError(t, err)
	first := addSource(t, r, "first")
	addSource(t, r, "second")
	require.NoError(t, r.Select(ctx, first.ID))

	// Reload from the same store; the saved id must win over the default.
	r2, err := Load(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, first.ID, r2.SelectedID())
}

func TestLoad_RepairsDanglingSelection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	r, err := Load(ctx, st)
	require.NoError(t, err)
	first := addSource(t, r, "first")

	// Simulate a stale persisted selection id.
	require.NoError(t, st.SetSetting(ctx, store.SettingSelectedSource, "01JUNKJUNKJUNKJUNKJUNKJUNK"))

	r2, err := Load(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, first.ID, r2.SelectedID())

	saved, err := st.GetSetting(ctx, store.SettingSelectedSource)
	require.NoError(t, err)
	assert.Equal(t, first.ID, saved, "repaired selection must be persisted")
}

func TestSelect_UnknownID(t *testing.T) {
	ctx := context.Background()
	r, err := Load(ctx, newTestStore(t))
	require.NoError(t, err)
	addSource(t, r, "first")

	assert.Error(t, r.Select(ctx, "missing"))
}

func TestRemove_ClearsFileContents(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r, err := Load(ctx, st)
	require.NoError(t, err)

	src := addSource(t, r, "first")
	require.NoError(t, st.PutFileContent(ctx, src.ID, "a.txt", "hello"))

	require.NoError(t, r.Remove(ctx, src.ID))

	paths, err := st.ListFilePaths(ctx, src.ID)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestResolve_ByNameAndPrefix(t *testing.T) {
	ctx := context.Background()
	r, err := Load(ctx, newTestStore(t))
	require.NoError(t, err)

	src := addSource(t, r, "proj")

	byName, err := r.Resolve("proj")
	require.NoError(t, err)
	assert.Equal(t, src.ID, byName.ID)

	byPrefix, err := r.Resolve(src.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, src.ID, byPrefix.ID)

	_, err = r.Resolve("nope")
	assert.Error(t, err)
}
