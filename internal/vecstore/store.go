package vecstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/pmahlen/docdex/pkg/types"
)

// Common errors
var (
	ErrInvalidDimension  = errors.New("vector dimension mismatch")
	ErrNonFiniteVector   = errors.New("vector contains non-finite values")
	ErrInvalidPoint      = errors.New("invalid vector point")
	ErrInvalidFilter     = errors.New("invalid search filter")
	ErrInvalidCollection = errors.New("invalid collection name")
)

// Defaults
const (
	DefaultCollection  = "doc_chunks"
	DefaultDimension   = 1024
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultIndexLists  = 100
	DefaultSearchLimit = 10
)

// identRe accepts plain SQL identifiers. The collection name is
// interpolated into statements, so anything else is rejected up front.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config configures the Postgres connection and collection.
type Config struct {
	URL        string // Postgres connection string
	Collection string // table name, default "doc_chunks"
	Dimension  int    // embedding dimension, default 1024
	MaxRetries int    // attempts per operation, default 3
	RetryDelay time.Duration
	IndexLists int // ivfflat lists parameter
}

func (c Config) withDefaults() Config {
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Dimension <= 0 {
		c.Dimension = DefaultDimension
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.IndexLists <= 0 {
		c.IndexLists = DefaultIndexLists
	}
	return c
}

// DB is the slice of pgxpool.Pool the store consumes. Tests substitute a
// fake.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store is the vector store gateway: chunk vectors and their payload live
// in one Postgres table with a pgvector column. All operations are safe
// for concurrent use.
type Store struct {
	db        DB
	table     string
	dimension int
	retry     retryConfig
	logger    *slog.Logger

	upsertSQL     string
	deleteDocSQL  string
	deleteRefsSQL string
	searchSQL     string
	visibilitySQL string
	countSQL      string
}

// Open connects to Postgres, ensures the vector extension, collection
// table, and ivfflat index exist, and verifies the collection dimension
// matches the configuration. A dimension mismatch is a fatal
// configuration error, not something to migrate around silently.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("vector store: connection URL required")
	}
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store, err := NewWithDB(pool, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.ensureSchema(ctx, cfg.withDefaults().IndexLists); err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.verifyDimension(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing connection without touching the schema.
func NewWithDB(db DB, cfg Config, logger *slog.Logger) (*Store, error) {
	cfg = cfg.withDefaults()
	if !identRe.MatchString(cfg.Collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, cfg.Collection)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		db:        db,
		table:     cfg.Collection,
		dimension: cfg.Dimension,
		retry:     retryConfig{maxAttempts: cfg.MaxRetries, delay: cfg.RetryDelay},
		logger:    logger,
	}
	s.buildStatements()
	return s, nil
}

func (s *Store) buildStatements() {
	s.upsertSQL = fmt.Sprintf(`
		INSERT INTO %s (point_id, document_id, chunk_id, chunk_ordinal, content, title, hidden, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (point_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_id = EXCLUDED.chunk_id,
			chunk_ordinal = EXCLUDED.chunk_ordinal,
			content = EXCLUDED.content,
			title = EXCLUDED.title,
			hidden = EXCLUDED.hidden,
			embedding = EXCLUDED.embedding`, s.table)

	s.deleteDocSQL = fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table)

	s.deleteRefsSQL = fmt.Sprintf(
		`DELETE FROM %s WHERE point_id = ANY($1) OR chunk_id = ANY($2)`, s.table)

	s.searchSQL = fmt.Sprintf(`
		SELECT document_id, chunk_id, chunk_ordinal, content, title,
		       1 - (embedding <=> $1) AS score
		FROM %s
		WHERE hidden = FALSE`, s.table)

	s.visibilitySQL = fmt.Sprintf(
		`UPDATE %s SET hidden = $2 WHERE document_id = $1`, s.table)

	s.countSQL = fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
}

func (s *Store) ensureSchema(ctx context.Context, lists int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				point_id      BIGINT PRIMARY KEY,
				document_id   BIGINT NOT NULL,
				chunk_id      TEXT NOT NULL,
				chunk_ordinal INTEGER NOT NULL,
				content       TEXT NOT NULL,
				title         TEXT NOT NULL DEFAULT '',
				hidden        BOOLEAN NOT NULL DEFAULT FALSE,
				embedding     vector(%d) NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, s.table, s.dimension),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)`, s.table, s.table, lists),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_chunk_idx ON %s (chunk_id)`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// verifyDimension compares the configured dimension against the live
// column. pgvector stores the dimension in the column's type modifier.
func (s *Store) verifyDimension(ctx context.Context) error {
	const q = `SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`

	var typmod int32
	if err := s.db.QueryRow(ctx, q, s.table).Scan(&typmod); err != nil {
		return fmt.Errorf("read collection dimension: %w", err)
	}
	if int(typmod) != s.dimension {
		return fmt.Errorf("%w: collection %s has dimension %d, configured %d",
			ErrInvalidDimension, s.table, typmod, s.dimension)
	}
	return nil
}

// Upsert writes points in one transaction. Every vector is validated
// before the transaction starts; a single bad point rejects the whole
// batch so a partial write never reaches the collection.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	for i, p := range points {
		if err := validatePoint(p, s.dimension, i); err != nil {
			return err
		}
	}

	_, err := withRetry(ctx, s.retry, s.logger, "upsert", func() (struct{}, error) {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return struct{}{}, fmt.Errorf("begin upsert: %w", err)
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()

		for _, p := range points {
			vec := pgvector.NewVector(p.Vector)
			_, err := tx.Exec(ctx, s.upsertSQL,
				p.ID, p.DocumentID, p.ChunkID, p.Ordinal, p.Content, p.Title, p.Hidden, vec)
			if err != nil {
				return struct{}{}, fmt.Errorf("upsert point %d: %w", p.ID, err)
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return struct{}{}, fmt.Errorf("commit upsert: %w", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("upserted points", "count", len(points))
	return nil
}

// DeleteByDocument removes every point carrying the document id.
func (s *Store) DeleteByDocument(ctx context.Context, documentID int64) error {
	deleted, err := withRetry(ctx, s.retry, s.logger, "delete_by_document", func() (int64, error) {
		tag, err := s.db.Exec(ctx, s.deleteDocSQL, documentID)
		if err != nil {
			return 0, fmt.Errorf("delete document %d points: %w", documentID, err)
		}
		return tag.RowsAffected(), nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("deleted document points", "document_id", documentID, "count", deleted)
	return nil
}

// DeleteByChunkIDs removes points addressed by mixed id forms: numeric
// strings are treated as point ids, everything else matches the chunk_id
// payload column. Both forms are handled in a single statement.
func (s *Store) DeleteByChunkIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var pointIDs []int64
	var chunkIDs []string
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			pointIDs = append(pointIDs, n)
			continue
		}
		chunkIDs = append(chunkIDs, id)
	}

	deleted, err := withRetry(ctx, s.retry, s.logger, "delete_by_chunk_ids", func() (int64, error) {
		tag, err := s.db.Exec(ctx, s.deleteRefsSQL, pointIDs, chunkIDs)
		if err != nil {
			return 0, fmt.Errorf("delete chunk points: %w", err)
		}
		return tag.RowsAffected(), nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("deleted chunk points",
		"point_ids", len(pointIDs), "chunk_ids", len(chunkIDs), "count", deleted)
	return nil
}

// Search returns the points most similar to the query vector, ranked by
// cosine similarity. Hidden points are always excluded; the caller filter
// is AND-ed under that predicate and cannot widen it.
func (s *Store) Search(ctx context.Context, queryVector []float32, limit int, filter *Filter) ([]types.SearchResult, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d components, collection uses %d",
			ErrInvalidDimension, len(queryVector), s.dimension)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query := s.searchSQL
	args := []any{pgvector.NewVector(queryVector), limit}
	if filter != nil {
		clause, _, compiled, err := compileFilter(*filter, 3, args)
		if err != nil {
			return nil, err
		}
		query += " AND (" + clause + ")"
		args = compiled
	}
	query += ` ORDER BY embedding <=> $1 LIMIT $2`

	return withRetry(ctx, s.retry, s.logger, "search", func() ([]types.SearchResult, error) {
		rows, err := s.db.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("search query: %w", err)
		}
		defer rows.Close()

		var results []types.SearchResult
		for rows.Next() {
			var r types.SearchResult
			if err := rows.Scan(&r.DocumentID, &r.ChunkID, &r.ChunkOrdinal, &r.Text, &r.Title, &r.Score); err != nil {
				return nil, fmt.Errorf("scan search row: %w", err)
			}
			results = append(results, r)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("search rows: %w", err)
		}
		return results, nil
	})
}

// UpdateVisibility flips the hidden payload for a document's points.
// Used when a document's visibility changes without a content change, so
// no vectors need rewriting.
func (s *Store) UpdateVisibility(ctx context.Context, documentID int64, hidden bool) error {
	updated, err := withRetry(ctx, s.retry, s.logger, "update_visibility", func() (int64, error) {
		tag, err := s.db.Exec(ctx, s.visibilitySQL, documentID, hidden)
		if err != nil {
			return 0, fmt.Errorf("update visibility for document %d: %w", documentID, err)
		}
		return tag.RowsAffected(), nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("updated point visibility",
		"document_id", documentID, "hidden", hidden, "count", updated)
	return nil
}

// Count returns the number of points in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return withRetry(ctx, s.retry, s.logger, "count", func() (int64, error) {
		var count int64
		if err := s.db.QueryRow(ctx, s.countSQL).Scan(&count); err != nil {
			return 0, fmt.Errorf("count points: %w", err)
		}
		return count, nil
	})
}

// Dimension returns the configured embedding dimension.
func (s *Store) Dimension() int { return s.dimension }

// Close releases the underlying pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
