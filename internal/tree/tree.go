// Package tree builds nested directory trees from flat lists of relative
// paths. It is shared by archive and folder ingestion.
package tree

import (
	"sort"
	"strings"

	"github.com/davell/repopatch/internal/models"
)

// ConflictKind classifies why an insertion was rejected.
type ConflictKind string

const (
	// ConflictFileOverFolder: the terminal segment of a file path already
	// exists as a folder. The file insertion is skipped.
	ConflictFileOverFolder ConflictKind = "file_over_folder"
	// ConflictFileInPath: an intermediate segment already exists as a
	// file. The remaining subtree insertion is aborted.
	ConflictFileInPath ConflictKind = "file_in_path"
)

// Conflict is a non-fatal tree insertion conflict. Callers decide whether
// to surface it.
type Conflict struct {
	Kind ConflictKind
	Path string // the path whose insertion was rejected
	At   string // the existing node that blocked it
}

func (c Conflict) String() string {
	switch c.Kind {
	case ConflictFileOverFolder:
		return "cannot insert file " + c.Path + ": a folder named " + c.At + " already exists"
	case ConflictFileInPath:
		return "cannot insert " + c.Path + ": " + c.At + " already exists as a file"
	}
	return "conflict at " + c.Path
}

// splitPath splits a relative path on "/", discarding empty segments from
// leading, trailing, or doubled slashes.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Insert adds one entry to a mutable tree root. The final segment becomes
// a file node (or a folder node when isFile is false) carrying the full
// normalized path. Intermediate folders are created as needed; inserting
// into an existing folder merges into its children.
//
// A nil return means the entry was inserted. A non-nil Conflict means the
// insertion was rejected; the tree is left as it was.
func Insert(root map[string]*models.TreeNode, relPath string, isFile bool) *Conflict {
	segs := splitPath(relPath)
	if len(segs) == 0 {
		return nil
	}

	children := root
	for i, seg := range segs[:len(segs)-1] {
		node, ok := children[seg]
		if !ok {
			node = &models.TreeNode{
				Type:     models.NodeFolder,
				Path:     strings.Join(segs[:i+1], "/"),
				Children: map[string]*models.TreeNode{},
			}
			children[seg] = node
		} else if !node.IsFolder() {
			return &Conflict{Kind: ConflictFileInPath, Path: strings.Join(segs, "/"), At: node.Path}
		}
		children = node.Children
	}

	last := segs[len(segs)-1]
	full := strings.Join(segs, "/")
	existing, ok := children[last]
	if !ok {
		node := &models.TreeNode{Path: full}
		if isFile {
			node.Type = models.NodeFile
		} else {
			node.Type = models.NodeFolder
			node.Children = map[string]*models.TreeNode{}
		}
		children[last] = node
		return nil
	}

	if isFile {
		if existing.IsFolder() {
			return &Conflict{Kind: ConflictFileOverFolder, Path: full, At: existing.Path}
		}
		// Same file inserted twice; idempotent.
		return nil
	}
	if !existing.IsFolder() {
		return &Conflict{Kind: ConflictFileInPath, Path: full, At: existing.Path}
	}
	return nil
}

// FromPaths builds a tree from a flat list of file paths. Paths are
// inserted in sorted order so the tree shape, and which side of a
// conflict wins, is deterministic regardless of input order.
func FromPaths(paths []string) (map[string]*models.TreeNode, []Conflict) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	root := map[string]*models.TreeNode{}
	var conflicts []Conflict
	for _, p := range sorted {
		if c := Insert(root, p, true); c != nil {
			conflicts = append(conflicts, *c)
		}
	}
	return root, conflicts
}

// Files returns the normalized paths of all file nodes in the tree,
// sorted lexicographically.
func Files(root map[string]*models.TreeNode) []string {
	var out []string
	var walk func(nodes map[string]*models.TreeNode)
	walk = func(nodes map[string]*models.TreeNode) {
		for _, n := range nodes {
			if n.IsFolder() {
				walk(n.Children)
				continue
			}
			out = append(out, n.Path)
		}
	}
	walk(root)
	sort.Strings(out)
	return out
}
