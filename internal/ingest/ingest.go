// Package ingest turns archives and folders into local sources: entries
// are collected, normalized, inserted into a tree, and their contents
// written to the keyed content store. Archive and folder ingestion share
// the same tree construction; only entry collection differs.
package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/registry"
	"github.com/davell/repopatch/internal/store"
	"github.com/davell/repopatch/internal/tree"
)

// Entry is one collected (path, content) pair. Paths use forward slashes
// and are relative to the ingested root.
type Entry struct {
	Path    string
	Content string
}

// Archive collects entries from a zip file. A shared top-level directory
// (the usual "project-main/" zip prefix) is stripped so entry paths are
// rooted at the project itself.
func Archive(zipPath string) (string, []Entry, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	var entries []Entry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		p := strings.ReplaceAll(f.Name, "\\", "/")
		if skipEntry(p) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("open archive entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("read archive entry %s: %w", f.Name, err)
		}
		entries = append(entries, Entry{Path: p, Content: string(data)})
	}

	entries = stripCommonRoot(entries)
	name := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	return name, entries, nil
}

// Folder collects entries from a directory on disk. Paths are made
// relative to the picked folder, so an entry arrives the same shape as a
// browser's folder upload after its leading folder segment is dropped.
func Folder(dir string) (string, []Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolve folder: %w", err)
	}

	var entries []Entry
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if skipEntry(rel) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		entries = append(entries, Entry{Path: rel, Content: string(data)})
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("walk folder: %w", err)
	}

	return filepath.Base(abs), entries, nil
}

// skipEntry filters archive noise that is never project content.
func skipEntry(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "__MACOSX" || seg == ".DS_Store" {
			return true
		}
	}
	return false
}

// stripCommonRoot removes a top-level directory shared by every entry.
func stripCommonRoot(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	root := ""
	for _, e := range entries {
		seg, rest, ok := strings.Cut(strings.TrimLeft(e.Path, "/"), "/")
		if !ok || rest == "" {
			return entries // a top-level file: nothing shared
		}
		if root == "" {
			root = seg
		} else if seg != root {
			return entries
		}
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		_, rest, _ := strings.Cut(strings.TrimLeft(e.Path, "/"), "/")
		out[i] = Entry{Path: rest, Content: e.Content}
	}
	return out
}

// Register builds the tree for the collected entries, stores their
// contents keyed by the new source's id, and adds the source to the
// registry. A local source's tree is populated here, once; it is never
// re-fetched. Tree conflicts are non-fatal and returned for the caller to
// surface; a conflicted entry's content is not stored.
func Register(ctx context.Context, st store.Store, reg *registry.Registry, displayName string, entries []Entry) (*models.Source, []tree.Conflict, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	src := &models.Source{
		Kind:        models.SourceKindLocal,
		DisplayName: displayName,
		Tree:        map[string]*models.TreeNode{},
	}
	if err := reg.Add(ctx, src); err != nil {
		return nil, nil, err
	}

	var conflicts []tree.Conflict
	for _, e := range sorted {
		if c := tree.Insert(src.Tree, e.Path, true); c != nil {
			conflicts = append(conflicts, *c)
			continue
		}
		if err := st.PutFileContent(ctx, src.ID, normalizePath(e.Path), e.Content); err != nil {
			return nil, conflicts, fmt.Errorf("store %s: %w", e.Path, err)
		}
	}
	return src, conflicts, nil
}

// normalizePath collapses empty segments the same way tree insertion
// does, so content keys always match tree node paths.
func normalizePath(p string) string {
	parts := strings.Split(p, "/")
	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return strings.Join(segs, "/")
}
