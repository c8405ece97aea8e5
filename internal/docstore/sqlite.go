package docstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pmahlen/docdex/pkg/types"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertDocument writes the document row. The version bumps only when the
// content hash changed; title or visibility edits alone keep it.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *types.Document) (int64, error) {
	if doc.ID <= 0 {
		return 0, types.ErrInvalidDocumentID
	}
	hash := sha256.Sum256([]byte(doc.Content))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	var (
		version    int64
		storedHash []byte
	)
	err = tx.QueryRowContext(ctx,
		"SELECT version, content_hash FROM documents WHERE id = ?", doc.ID,
	).Scan(&version, &storedHash)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		version = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, content_hash, version, hidden, deleted, index_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			doc.ID, doc.Title, doc.Content, hash[:], version, doc.Hidden,
			string(types.StatusPending), now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert document %d: %w", doc.ID, err)
		}

	case err != nil:
		return 0, fmt.Errorf("failed to read document %d: %w", doc.ID, err)

	case bytes.Equal(storedHash, hash[:]):
		// Content unchanged; version stays.
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET title = ?, hidden = ?, deleted = 0, updated_at = ?
			WHERE id = ?`,
			doc.Title, doc.Hidden, now, doc.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update document %d: %w", doc.ID, err)
		}

	default:
		version++
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET title = ?, content = ?, content_hash = ?, version = ?, hidden = ?, deleted = 0, updated_at = ?
			WHERE id = ?`,
			doc.Title, doc.Content, hash[:], version, doc.Hidden, now, doc.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update document %d: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	doc.Version = version
	return version, nil
}

// GetDocument returns the document row, deleted or not.
func (s *SQLiteStore) GetDocument(ctx context.Context, documentID int64) (*types.Document, error) {
	query := `
		SELECT id, title, content, version, hidden, deleted,
		       index_status, index_error, last_indexed_at, created_at, updated_at
		FROM documents
		WHERE id = ?
	`
	var doc types.Document
	var status string
	var lastIndexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.Version, &doc.Hidden, &doc.Deleted,
		&status, &doc.IndexError, &lastIndexedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", documentID, err)
	}
	doc.IndexStatus = types.IndexStatus(status)
	if lastIndexedAt.Valid {
		doc.LastIndexedAt = lastIndexedAt.Time
	}
	return &doc, nil
}

// SoftDeleteDocument marks the document deleted.
func (s *SQLiteStore) SoftDeleteDocument(ctx context.Context, documentID int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE documents SET deleted = 1, updated_at = ? WHERE id = ?",
		time.Now(), documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document %d: %w", documentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceChunks swaps the chunk snapshot for a document in one
// transaction. Writing a version older than the persisted snapshot is
// rejected so a stale worker can never roll the snapshot back.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, documentID, version int64, chunks []types.Chunk) error {
	for i := range chunks {
		if chunks[i].DocumentID != documentID {
			return fmt.Errorf("chunk %d belongs to document %d, not %d",
				i, chunks[i].DocumentID, documentID)
		}
		if err := chunks[i].Validate(); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT MAX(version) FROM chunks WHERE document_id = ?", documentID,
	).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read chunk version for document %d: %w", documentID, err)
	}
	if current.Valid && current.Int64 > version {
		return fmt.Errorf("%w: snapshot at version %d, write targets %d",
			ErrVersionMismatch, current.Int64, version)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to clear chunks for document %d: %w", documentID, err)
	}

	insert := `
		INSERT INTO chunks (stable_id, document_id, version, chunk_type, heading, content, norm_content, content_hash, embedding_ref, ordinal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for i := range chunks {
		c := &chunks[i]
		_, err := tx.ExecContext(ctx, insert,
			c.StableID, documentID, version, string(c.Type), c.Heading,
			c.Text, c.NormText, c.ContentHash[:], c.EmbeddingRef, c.Ordinal, now)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.StableID, err)
		}
	}

	return tx.Commit()
}

// LatestChunks returns the persisted chunk snapshot ordered by ordinal,
// along with the snapshot's version. Both are zero for a document that
// has never been indexed.
func (s *SQLiteStore) LatestChunks(ctx context.Context, documentID int64) ([]types.Chunk, int64, error) {
	query := `
		SELECT stable_id, document_id, version, chunk_type, heading, content, norm_content, content_hash, embedding_ref, ordinal
		FROM chunks
		WHERE document_id = ?
		ORDER BY ordinal
	`
	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list chunks for document %d: %w", documentID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []types.Chunk
	var version int64
	for rows.Next() {
		var c types.Chunk
		var chunkType string
		var hash []byte
		err := rows.Scan(
			&c.StableID, &c.DocumentID, &c.Version, &chunkType, &c.Heading,
			&c.Text, &c.NormText, &hash, &c.EmbeddingRef, &c.Ordinal,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Type = types.ChunkType(chunkType)
		copy(c.ContentHash[:], hash)
		version = c.Version
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return chunks, version, nil
}

// DeleteChunks removes the document's chunk snapshot.
func (s *SQLiteStore) DeleteChunks(ctx context.Context, documentID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete chunks for document %d: %w", documentID, err)
	}
	return nil
}

// SetIndexStatus records the indexing lifecycle state on the document row.
func (s *SQLiteStore) SetIndexStatus(ctx context.Context, documentID int64, status types.IndexStatus, indexError string) error {
	if !status.Valid() {
		return types.ErrInvalidIndexStatus
	}

	now := time.Now()
	var result sql.Result
	var err error
	switch status {
	case types.StatusCompleted:
		result, err = s.db.ExecContext(ctx, `
			UPDATE documents SET index_status = ?, index_error = '', last_indexed_at = ?, updated_at = ?
			WHERE id = ?`,
			string(status), now, now, documentID)
	case types.StatusFailed:
		result, err = s.db.ExecContext(ctx, `
			UPDATE documents SET index_status = ?, index_error = ?, updated_at = ?
			WHERE id = ?`,
			string(status), indexError, now, documentID)
	default:
		result, err = s.db.ExecContext(ctx, `
			UPDATE documents SET index_status = ?, index_error = '', updated_at = ?
			WHERE id = ?`,
			string(status), now, documentID)
	}
	if err != nil {
		return fmt.Errorf("failed to set index status for document %d: %w", documentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetIndexStatus reads the status fields without the content.
func (s *SQLiteStore) GetIndexStatus(ctx context.Context, documentID int64) (*DocumentStatus, error) {
	query := `
		SELECT version, index_status, index_error, last_indexed_at
		FROM documents
		WHERE id = ?
	`
	var ds DocumentStatus
	var status string
	var lastIndexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&ds.Version, &status, &ds.Error, &lastIndexedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index status for document %d: %w", documentID, err)
	}
	ds.DocumentID = documentID
	ds.Status = types.IndexStatus(status)
	if lastIndexedAt.Valid {
		ds.LastIndexedAt = lastIndexedAt.Time
	}
	return &ds, nil
}

// Counts returns the number of live documents and chunk rows.
func (s *SQLiteStore) Counts(ctx context.Context) (int64, int64, error) {
	var documents int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE deleted = 0").Scan(&documents); err != nil {
		return 0, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	var chunks int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunks); err != nil {
		return 0, 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return documents, chunks, nil
}
