// Package sqlite persists per-document ingest state in a local SQLite
// database. The pipeline consults it to skip unchanged documents and to
// trim trailing chunks when a re-ingested document shrinks.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/piolet-labs/piolet-cli/internal/adapters/driven/state/sqlite/migrations"
	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

var _ driven.IngestStateStore = (*Store)(nil)

// Store is an IngestStateStore backed by a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the state database under dataDir. If dataDir
// is empty, defaults to ~/.piolet/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".piolet", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ingest.db")

	// WAL mode so a watch-mode ingest can overlap with reads.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Get retrieves the state for a document.
func (s *Store) Get(ctx context.Context, docID string) (*driven.IngestState, error) {
	var state driven.IngestState
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, checksum, chunk_count, last_ingest
		FROM ingest_state WHERE doc_id = ?`, docID).Scan(
		&state.DocID, &state.Checksum, &state.ChunkCount, &state.LastIngest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting ingest state for %s: %w", docID, err)
	}
	return &state, nil
}

// Save stores or updates the state for a document.
func (s *Store) Save(ctx context.Context, state driven.IngestState) error {
	if state.LastIngest.IsZero() {
		state.LastIngest = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_state (doc_id, checksum, chunk_count, last_ingest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (doc_id) DO UPDATE
		  SET checksum = excluded.checksum,
		      chunk_count = excluded.chunk_count,
		      last_ingest = excluded.last_ingest`,
		state.DocID, state.Checksum, state.ChunkCount, state.LastIngest)
	if err != nil {
		return fmt.Errorf("saving ingest state for %s: %w", state.DocID, err)
	}
	return nil
}

// Delete removes the state for a document.
func (s *Store) Delete(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM ingest_state WHERE doc_id = ?", docID)
	if err != nil {
		return fmt.Errorf("deleting ingest state for %s: %w", docID, err)
	}
	return nil
}
