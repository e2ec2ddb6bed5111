package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/davell/repopatch/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool, so
	// at most one write transaction is ever in flight.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string. ULIDs sort by creation time, which
// doubles as the source ordering.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sources ---

func (s *SQLiteStore) CreateSource(ctx context.Context, src *models.Source) error {
	if src.ID == "" {
		src.ID = newULID()
	}
	now := time.Now().UTC()
	src.CreatedAt = now
	src.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (id, kind, root_path, display_name, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.ID, string(src.Kind), src.RootPath, src.DisplayName, src.LastError, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	src := &models.Source{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, root_path, display_name, last_error, created_at, updated_at
		FROM sources WHERE id = ?`, id,
	).Scan(&src.ID, &kind, &src.RootPath, &src.DisplayName, &src.LastError, &src.CreatedAt, &src.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	src.Kind = models.SourceKind(kind)
	return src, nil
}

func (s *SQLiteStore) ListSources(ctx context.Context) ([]*models.Source, error) {
	// ULIDs are lexicographically ordered by creation time.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, root_path, display_name, last_error, created_at, updated_at
		FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []*models.Source
	for rows.Next() {
		src := &models.Source{}
		var kind string
		if err := rows.Scan(&src.ID, &kind, &src.RootPath, &src.DisplayName, &src.LastError, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Kind = models.SourceKind(kind)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStore) UpdateSource(ctx context.Context, src *models.Source) error {
	src.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE sources SET kind=?, root_path=?, display_name=?, last_error=?, updated_at=?
		WHERE id=?`,
		string(src.Kind), src.RootPath, src.DisplayName, src.LastError, src.UpdatedAt, src.ID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source not found: %s", src.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source not found: %s", id)
	}
	return nil
}

// --- File contents ---

func (s *SQLiteStore) PutFileContent(ctx context.Context, sourceID, path, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_contents (source_id, path, content) VALUES (?, ?, ?)
		ON CONFLICT(source_id, path) DO UPDATE SET content=excluded.content`,
		sourceID, path, content,
	)
	if err != nil {
		return fmt.Errorf("put file content: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFileContent(ctx context.Context, sourceID, path string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM file_contents WHERE source_id = ? AND path = ?",
		sourceID, path,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get file content: %w", err)
	}
	return content, true, nil
}

func (s *SQLiteStore) ListFilePaths(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path FROM file_contents WHERE source_id = ? ORDER BY path", sourceID)
	if err != nil {
		return nil, fmt.Errorf("list file paths: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *SQLiteStore) DeleteFileContents(ctx context.Context, sourceID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM file_contents WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("delete file contents: %w", err)
	}
	return nil
}

// --- Settings ---

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
