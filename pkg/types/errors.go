package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidDocumentID  = errors.New("invalid document ID")
	ErrInvalidVersion     = errors.New("version must be >= 1")
	ErrInvalidIndexStatus = errors.New("invalid index status")
	ErrMissingStableID    = errors.New("chunk stable ID is required")
	ErrMissingContentHash = errors.New("chunk content hash is required")
	ErrInvalidChunkType   = errors.New("invalid chunk type")
	ErrInvalidOrdinal     = errors.New("ordinal must be >= 0")
	ErrInvalidAttempt     = errors.New("attempt must be >= 0")
	ErrEmptyContent       = errors.New("content cannot be empty")
)
