package store

import (
	"context"

	"github.com/davell/repopatch/internal/models"
)

// Well-known settings keys.
const (
	SettingEndpoint       = "endpoint"
	SettingSelectedSource = "selected_source"
	SettingFailurePaths   = "failure_paths"
)

// Store defines the persistence interface for repopatch: the source list,
// the per-source keyed content store, and the settings store.
//
// File contents are namespaced by source id, so different sources' keys
// never collide. Trees are not persisted; only the source record itself.
type Store interface {
	// Sources
	CreateSource(ctx context.Context, s *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	UpdateSource(ctx context.Context, s *models.Source) error
	DeleteSource(ctx context.Context, id string) error

	// File contents, keyed by (source id, relative path).
	PutFileContent(ctx context.Context, sourceID, path, content string) error
	// GetFileContent returns the content and whether the key exists. A
	// missing key is not an error.
	GetFileContent(ctx context.Context, sourceID, path string) (string, bool, error)
	ListFilePaths(ctx context.Context, sourceID string) ([]string, error)
	DeleteFileContents(ctx context.Context, sourceID string) error

	// Settings. GetSetting returns "" for a missing key.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
