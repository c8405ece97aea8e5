package types

import "time"

// IndexTask is a unit of queued indexing work: a snapshot of the document
// at enqueue time plus scheduling metadata. The snapshot decouples the
// pipeline from concurrent edits; the queue deduplicates by DocumentID.
type IndexTask struct {
	DocumentID int64
	Title      string
	Content    string
	Hidden     bool

	// Scheduling
	Priority   int // lower runs sooner
	EnqueuedAt time.Time
	Attempt    int // 0 on first run, incremented per retry
}

// Validate checks the task for structural integrity.
func (t *IndexTask) Validate() error {
	if t.DocumentID <= 0 {
		return ErrInvalidDocumentID
	}
	if t.Attempt < 0 {
		return ErrInvalidAttempt
	}
	return nil
}

// TaskInfo is the introspection view of a queued task exposed by the
// queue's status operation.
type TaskInfo struct {
	DocumentID int64     `json:"document_id"`
	Title      string    `json:"title"`
	Priority   int       `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
}
