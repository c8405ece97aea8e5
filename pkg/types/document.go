package types

import "time"

// IndexStatus tracks where a document stands in the indexing lifecycle
type IndexStatus string

const (
	StatusPending    IndexStatus = "pending"
	StatusProcessing IndexStatus = "processing"
	StatusCompleted  IndexStatus = "completed"
	StatusFailed     IndexStatus = "failed"
)

// Valid reports whether s is one of the defined index states.
func (s IndexStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Document is the indexed view of a document record. The authoring side
// owns the content; this core reads it, maintains the version counter, and
// mutates only the index-status fields.
type Document struct {
	// Identification
	ID    int64
	Title string

	// Content
	Content string
	Version int64 // monotonically increasing, bumped on content change

	// Visibility
	Hidden  bool
	Deleted bool

	// Index state, mutated only by the queue worker for this document
	IndexStatus   IndexStatus
	IndexError    string
	LastIndexedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the document for structural integrity.
func (d *Document) Validate() error {
	if d.ID <= 0 {
		return ErrInvalidDocumentID
	}
	if d.Version < 1 {
		return ErrInvalidVersion
	}
	if d.IndexStatus != "" && !d.IndexStatus.Valid() {
		return ErrInvalidIndexStatus
	}
	return nil
}
