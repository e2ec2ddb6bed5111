// Package resolve turns relative file paths plus a source into content or
// a typed absence, regardless of which source kind backs it.
package resolve

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/registry"
	"github.com/davell/repopatch/internal/remote"
	"github.com/davell/repopatch/internal/store"
)

// FailureSet tracks the paths whose resolution failed (excluding benign
// not-found) during one preview or apply cycle.
type FailureSet map[string]struct{}

func (f FailureSet) Add(path string)      { f[path] = struct{}{} }
func (f FailureSet) Has(path string) bool { _, ok := f[path]; return ok }

// Paths returns the failed paths, sorted.
func (f FailureSet) Paths() []string {
	out := make([]string, 0, len(f))
	for p := range f {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Resolver resolves file contents against registered sources. A nil
// client is valid; remote resolution then fails per-path instead of
// panicking.
type Resolver struct {
	store    store.Store
	registry *registry.Registry
	client   *remote.Client
	failures FailureSet
}

// New creates a Resolver. client may be nil when no endpoint is
// configured.
func New(st store.Store, reg *registry.Registry, client *remote.Client) *Resolver {
	return &Resolver{store: st, registry: reg, client: client, failures: FailureSet{}}
}

// Failures returns the failure set of the most recent ResolveFiles cycle.
func (r *Resolver) Failures() FailureSet { return r.failures }

// ResolveFiles resolves each requested relative path against the given
// source. The returned map always contains exactly one entry per
// requested path. The failure set is cleared at the start of every call
// and persisted (best effort) at the end of the cycle.
func (r *Resolver) ResolveFiles(ctx context.Context, sourceID string, paths []string) map[string]*models.ResolvedFile {
	r.failures = FailureSet{}
	out := make(map[string]*models.ResolvedFile, len(paths))

	src := r.registry.Get(sourceID)
	switch {
	case src == nil:
		for _, p := range paths {
			out[p] = r.errFile(p, "source not found: "+sourceID)
		}
	case src.Kind == models.SourceKindLocal:
		for _, p := range paths {
			out[p] = r.resolveLocal(ctx, src, p)
		}
	case src.Kind == models.SourceKindRemote:
		r.resolveRemote(ctx, src, paths, out)
	default:
		for _, p := range paths {
			out[p] = r.errFile(p, "unsupported source kind: "+string(src.Kind))
		}
	}

	r.persistFailures(ctx)
	return out
}

func (r *Resolver) errFile(path, msg string) *models.ResolvedFile {
	r.failures.Add(path)
	return &models.ResolvedFile{Path: path, Outcome: models.OutcomeError, Err: msg}
}

// resolveLocal looks one path up in the keyed content store. A missing
// key is a normal not_found outcome: the patch may be creating that file.
func (r *Resolver) resolveLocal(ctx context.Context, src *models.Source, path string) *models.ResolvedFile {
	content, ok, err := r.store.GetFileContent(ctx, src.ID, path)
	if err != nil {
		return r.errFile(path, err.Error())
	}
	if !ok {
		return &models.ResolvedFile{Path: path, Outcome: models.OutcomeNotFound}
	}
	return &models.ResolvedFile{Path: path, Content: content, Outcome: models.OutcomeOK}
}

// resolveRemote joins the relative paths with the source root and submits
// one batched request. Per-file outcomes are mapped back to the original
// relative paths; the batch never aborts part-way.
func (r *Resolver) resolveRemote(ctx context.Context, src *models.Source, paths []string, out map[string]*models.ResolvedFile) {
	if r.client == nil {
		for _, p := range paths {
			out[p] = r.errFile(p, "no endpoint configured")
		}
		return
	}
	if src.RootPath == "" {
		for _, p := range paths {
			out[p] = r.errFile(p, "source has no root path")
		}
		return
	}

	abs := make([]string, len(paths))
	for i, p := range paths {
		abs[i] = joinRoot(src.RootPath, p)
	}

	files, err := r.client.Files(ctx, abs)
	if err != nil {
		for _, p := range paths {
			out[p] = r.errFile(p, err.Error())
		}
		return
	}

	for i, p := range paths {
		result, ok := files[abs[i]]
		switch {
		case !ok:
			out[p] = r.errFile(p, "no response for this file")
		case result.Success:
			out[p] = &models.ResolvedFile{Path: p, Content: result.Content, Outcome: models.OutcomeOK}
		case IsNotFound(result.Error):
			out[p] = &models.ResolvedFile{Path: p, Outcome: models.OutcomeNotFound}
		default:
			out[p] = r.errFile(p, result.Error)
		}
	}
}

// persistFailures saves the cycle's failed paths to the settings store.
// Best effort: a persistence failure must not poison the resolution
// results themselves.
func (r *Resolver) persistFailures(ctx context.Context) {
	buf, err := json.Marshal(r.failures.Paths())
	if err != nil {
		return
	}
	_ = r.store.SetSetting(ctx, store.SettingFailurePaths, string(buf))
}

// joinRoot joins a source root with a relative path using forward
// slashes, as the server expects.
func joinRoot(root, rel string) string {
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(rel, "/")
}

// IsNotFound reports whether a per-file error message means the file does
// not exist, as opposed to a real fault. The server reports nonexistence
// through OS error text, so this is a message-shape check.
func IsNotFound(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") ||
		strings.Contains(m, "no such file") ||
		strings.Contains(m, "cannot find")
}
