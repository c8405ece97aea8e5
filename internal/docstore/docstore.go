package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/pmahlen/docdex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested document doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrVersionMismatch is returned when a chunk snapshot write targets a
	// version the document doesn't carry
	ErrVersionMismatch = errors.New("version mismatch")
)

// Store persists documents, their chunk snapshots, and index status. The
// chunk snapshot for a document is always the full set from its latest
// indexed version; the diff engine runs against it.
type Store interface {
	// UpsertDocument writes the document row and returns its version.
	// The version increments only when the content actually changed;
	// title and visibility edits keep the current version. Re-upserting
	// a soft-deleted document revives it.
	UpsertDocument(ctx context.Context, doc *types.Document) (int64, error)

	// GetDocument returns the document row, deleted or not.
	GetDocument(ctx context.Context, documentID int64) (*types.Document, error)

	// SoftDeleteDocument marks the document deleted. Chunk rows are
	// removed separately once the vector side has been cleaned up.
	SoftDeleteDocument(ctx context.Context, documentID int64) error

	// ReplaceChunks swaps the document's chunk snapshot in one
	// transaction: prior rows go, the given rows come in stamped with
	// version.
	ReplaceChunks(ctx context.Context, documentID, version int64, chunks []types.Chunk) error

	// LatestChunks returns the persisted snapshot and its version, both
	// zero when the document has never been indexed.
	LatestChunks(ctx context.Context, documentID int64) ([]types.Chunk, int64, error)

	// DeleteChunks removes the document's chunk snapshot.
	DeleteChunks(ctx context.Context, documentID int64) error

	// SetIndexStatus records where the document stands in the indexing
	// lifecycle. A failed status keeps indexError; completed stamps
	// LastIndexedAt and clears any prior error.
	SetIndexStatus(ctx context.Context, documentID int64, status types.IndexStatus, indexError string) error

	// GetIndexStatus reads the status fields without the content.
	GetIndexStatus(ctx context.Context, documentID int64) (*DocumentStatus, error)

	// Counts returns the number of live documents and chunk rows.
	Counts(ctx context.Context) (documents, chunks int64, err error)

	Close() error
}

// DocumentStatus is the index-status view of a document row.
type DocumentStatus struct {
	DocumentID    int64
	Version       int64
	Status        types.IndexStatus
	Error         string
	LastIndexedAt time.Time
}
