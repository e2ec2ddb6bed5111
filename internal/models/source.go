package models

import "time"

// SourceKind distinguishes how a source's file contents are reached.
type SourceKind string

const (
	// SourceKindRemote is a path on the repopatch server; contents are
	// fetched over HTTP in batches.
	SourceKindRemote SourceKind = "remote"
	// SourceKindLocal is an ingested archive or folder; contents live in
	// the local content store, keyed per source.
	SourceKindLocal SourceKind = "local"
)

// Source is a registered origin of project files.
//
// Kind determines which fields are meaningful: RootPath is required for
// remote sources and always empty for local ones. Tree is an in-memory
// cache and is never persisted; a local source's tree is rebuilt from the
// content store, a remote source's tree is re-fetched on demand and
// replaced wholesale.
type Source struct {
	ID          string               `json:"id"`
	Kind        SourceKind           `json:"kind"`
	RootPath    string               `json:"rootPath,omitempty"`
	DisplayName string               `json:"displayName"`
	LastError   string               `json:"lastError,omitempty"`
	Tree        map[string]*TreeNode `json:"-"`
	CreatedAt   time.Time            `json:"-"`
	UpdatedAt   time.Time            `json:"-"`
}

// IsRemote reports whether the source is backed by the remote server.
func (s *Source) IsRemote() bool { return s.Kind == SourceKindRemote }
