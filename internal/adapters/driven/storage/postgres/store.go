// Package postgres implements the chunk store on PostgreSQL with the
// pgvector and pg_trgm extensions: one table serves both halves of the
// hybrid search.
package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/piolet-labs/piolet-cli/internal/adapters/driven/storage/postgres/migrations"
	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// chunkColumns is the projection shared by every read query.
const chunkColumns = "id, doc_type, doc_id, title, url, locale, chunk_index, text, updated_at"

// Store is a ChunkStore backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database, registers the pgvector codecs and
// runs pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
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

		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// UpsertChunks writes the chunks in one transaction, overwriting rows that
// share an id. A failure rolls the whole document write back.
func (s *Store) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO rag_chunks
			(id, doc_type, doc_id, title, url, locale, chunk_index, text, embedding, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (id) DO UPDATE
			  SET text = EXCLUDED.text,
			      embedding = EXCLUDED.embedding,
			      title = EXCLUDED.title,
			      url = EXCLUDED.url,
			      locale = EXCLUDED.locale,
			      doc_type = EXCLUDED.doc_type,
			      updated_at = NOW()`,
			c.ID, c.DocType, c.DocID, c.Title, c.URL, c.Locale, c.ChunkIndex, c.Text,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// SearchVector ranks chunks by cosine distance to the query embedding.
func (s *Store) SearchVector(ctx context.Context, embedding []float32, filter driven.ChunkFilter, k int) ([]domain.ScoredChunk, error) {
	where, args := buildFilter(filter)
	vec := pgvector.NewVector(embedding)
	args = append(args, vec)
	vecArg := len(args)
	args = append(args, k)
	limitArg := len(args)

	query := fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $%d) AS similarity
		FROM rag_chunks
		WHERE %s
		ORDER BY embedding <=> $%d
		LIMIT $%d`, chunkColumns, vecArg, where, vecArg, limitArg)

	return s.queryScored(ctx, "vector", query, args)
}

// SearchLexical ranks chunks by trigram similarity to the raw query string.
func (s *Store) SearchLexical(ctx context.Context, queryText string, filter driven.ChunkFilter, k int) ([]domain.ScoredChunk, error) {
	where, args := buildFilter(filter)
	args = append(args, queryText)
	textArg := len(args)
	args = append(args, k)
	limitArg := len(args)

	query := fmt.Sprintf(`
		SELECT %s, similarity(text, $%d) AS similarity
		FROM rag_chunks
		WHERE %s
		ORDER BY text <-> $%d
		LIMIT $%d`, chunkColumns, textArg, where, textArg, limitArg)

	return s.queryScored(ctx, "lexical", query, args)
}

// DeleteDocument removes every chunk belonging to a document.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM rag_chunks WHERE doc_id = $1", docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// DeleteChunksFrom removes a document's chunks with index >= fromIndex.
func (s *Store) DeleteChunksFrom(ctx context.Context, docID string, fromIndex int) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM rag_chunks WHERE doc_id = $1 AND chunk_index >= $2", docID, fromIndex)
	if err != nil {
		return fmt.Errorf("delete chunks of %s from %d: %w", docID, fromIndex, err)
	}
	return nil
}

// CountChunks reports the stored chunk count for a document, or for the
// whole corpus when docID is empty.
func (s *Store) CountChunks(ctx context.Context, docID string) (int, error) {
	var count int
	var err error
	if docID == "" {
		err = s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rag_chunks").Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM rag_chunks WHERE doc_id = $1", docID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// buildFilter renders the shared locale/doc_type WHERE clause. Arguments are
// appended in order; "TRUE" stands in when no filter applies.
func buildFilter(filter driven.ChunkFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Locale != "" {
		args = append(args, filter.Locale)
		conds = append(conds, fmt.Sprintf("locale = $%d", len(args)))
	}
	if len(filter.DocTypes) > 0 {
		args = append(args, filter.DocTypes)
		conds = append(conds, fmt.Sprintf("doc_type = ANY($%d)", len(args)))
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

// queryScored runs a ranked query and hydrates the rows.
func (s *Store) queryScored(ctx context.Context, source, query string, args []any) ([]domain.ScoredChunk, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", source, err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(
			&sc.Chunk.ID, &sc.Chunk.DocType, &sc.Chunk.DocID, &sc.Chunk.Title,
			&sc.Chunk.URL, &sc.Chunk.Locale, &sc.Chunk.ChunkIndex, &sc.Chunk.Text,
			&sc.Chunk.UpdatedAt, &sc.Similarity,
		); err != nil {
			return nil, fmt.Errorf("%s search scan: %w", source, err)
		}
		sc.Source = source
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s search rows: %w", source, err)
	}

	return results, nil
}
