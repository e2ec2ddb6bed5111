package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/davell/repopatch/internal/models"
)

func (s *Server) getDirectory(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("path")
	if requested == "" {
		cwd, err := os.Getwd()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "cannot determine working directory")
			return
		}
		requested = cwd
	}

	dirPath, err := validatePath(requested)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, "Provided path is not a directory")
		return
	}

	ign := loadIgnore(dirPath, nil)
	tree, err := s.buildTree(dirPath, ign)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tree":    tree,
		"root":    dirPath,
	})
}

// loadIgnore compiles the directory's .gitignore when present, otherwise
// inherits the parent's rules.
func loadIgnore(dir string, parent *ignore.GitIgnore) *ignore.GitIgnore {
	igPath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(igPath); err == nil {
		if ig, err := ignore.CompileIgnoreFile(igPath); err == nil {
			return ig
		}
	}
	if parent != nil {
		return parent
	}
	return ignore.CompileIgnoreLines()
}

// buildTree walks a directory into the wire tree shape. Node paths are
// absolute server-side paths. Ignored entries are skipped, folders come
// before files in natural name order, and empty folders are omitted.
func (s *Server) buildTree(dir string, ign *ignore.GitIgnore) (map[string]*models.TreeNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return natural.Less(a.Name(), b.Name())
	})

	tree := make(map[string]*models.TreeNode)
	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())
		if ign.MatchesPath(entryPath) {
			continue
		}

		if entry.IsDir() {
			children, err := s.buildTree(entryPath, loadIgnore(entryPath, ign))
			if err != nil {
				s.logger.Warn("skipping directory", "path", entryPath, "err", err)
				continue
			}
			if len(children) == 0 {
				continue
			}
			tree[entry.Name()] = &models.TreeNode{
				Type:     models.NodeFolder,
				Path:     entryPath,
				Children: children,
			}
		} else {
			tree[entry.Name()] = &models.TreeNode{
				Type: models.NodeFile,
				Path: entryPath,
			}
		}
	}
	return tree, nil
}
