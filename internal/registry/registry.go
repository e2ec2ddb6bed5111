// Package registry owns the list of project sources and the single
// selection. All mutation goes through Registry methods, which persist
// through the store before the next read is trusted; no other component
// writes source state directly.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/store"
)

// Registry is the in-memory view of the persisted source list plus the
// selected source id.
type Registry struct {
	store      store.Store
	sources    []*models.Source
	selectedID string
}

// Load reads the source list and the persisted selection from the store.
// A persisted selection that no longer references an existing source is
// repaired: fall back to the first source, or to none.
func Load(ctx context.Context, s store.Store) (*Registry, error) {
	sources, err := s.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	saved, err := s.GetSetting(ctx, store.SettingSelectedSource)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	r := &Registry{store: s, sources: sources, selectedID: saved}
	if err := r.validateSelection(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// validateSelection re-establishes the selection invariant after any
// structural change: prefer the current id if it still exists, else the
// first source, else none. Persists only when the value changed.
func (r *Registry) validateSelection(ctx context.Context) error {
	want := ""
	if r.selectedID != "" && r.get(r.selectedID) != nil {
		want = r.selectedID
	} else if len(r.sources) > 0 {
		want = r.sources[0].ID
	}

	if want == r.selectedID {
		return nil
	}
	return r.setSelected(ctx, want)
}

func (r *Registry) setSelected(ctx context.Context, id string) error {
	if err := r.store.SetSetting(ctx, store.SettingSelectedSource, id); err != nil {
		return fmt.Errorf("persist selection: %w", err)
	}
	r.selectedID = id
	return nil
}

func (r *Registry) get(id string) *models.Source {
	for _, s := range r.sources {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Sources returns all registered sources in creation order.
func (r *Registry) Sources() []*models.Source { return r.sources }

// Get returns the source with the given id, or nil.
func (r *Registry) Get(id string) *models.Source { return r.get(id) }

// Selected returns the selected source, or nil when none is selected.
func (r *Registry) Selected() *models.Source {
	if r.selectedID == "" {
		return nil
	}
	return r.get(r.selectedID)
}

// SelectedID returns the selected source id, or "".
func (r *Registry) SelectedID() string { return r.selectedID }

// Add persists a new source and makes it the selection.
func (r *Registry) Add(ctx context.Context, src *models.Source) error {
	if err := r.store.CreateSource(ctx, src); err != nil {
		return err
	}
	r.sources = append(r.sources, src)
	return r.setSelected(ctx, src.ID)
}

// Remove deletes a source and its keyed contents. If it was selected,
// selection falls back to the first remaining source or to none.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if r.get(id) == nil {
		return fmt.Errorf("source not found: %s", id)
	}
	if err := r.store.DeleteSource(ctx, id); err != nil {
		return err
	}
	// Contents cascade with the source row; clear explicitly in case the
	// schema is opened without foreign keys.
	if err := r.store.DeleteFileContents(ctx, id); err != nil {
		return err
	}

	kept := r.sources[:0]
	for _, s := range r.sources {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	r.sources = kept
	return r.validateSelection(ctx)
}

// Select makes the given source the selection.
func (r *Registry) Select(ctx context.Context, id string) error {
	if r.get(id) == nil {
		return fmt.Errorf("source not found: %s", id)
	}
	return r.setSelected(ctx, id)
}

// Update persists changed fields of a source (root path, last error).
func (r *Registry) Update(ctx context.Context, src *models.Source) error {
	return r.store.UpdateSource(ctx, src)
}

// Resolve finds a source by exact id, id prefix, or display name.
func (r *Registry) Resolve(ref string) (*models.Source, error) {
	if s := r.get(ref); s != nil {
		return s, nil
	}
	var match *models.Source
	for _, s := range r.sources {
		if s.DisplayName == ref || strings.HasPrefix(s.ID, strings.ToUpper(ref)) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous source: %s", ref)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("source not found: %s", ref)
	}
	return match, nil
}
