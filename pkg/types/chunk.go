package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChunkType describes how a chunk was produced by the segmenter
type ChunkType string

const (
	// ChunkSection is a chunk derived from a second-level heading span,
	// including sub-pieces of spans that were re-split for size.
	ChunkSection ChunkType = "section"
	// ChunkParagraph is a chunk produced by the paragraph-packing fallback
	// for documents without headings.
	ChunkParagraph ChunkType = "paragraph"
)

// Chunk represents a semantically bounded slice of a document's text, the
// atomic unit of embedding and indexing.
type Chunk struct {
	// Identity
	StableID   string // content-derived, order-independent
	DocumentID int64
	Version    int64

	// Content
	Type        ChunkType
	Heading     string // originating heading text, advisory
	Text        string // stripped chunk text as embedded
	NormText    string // canonical form the content hash covers
	ContentHash [32]byte

	// Index state
	EmbeddingRef int64 // vector point id; 0 means no vector recorded
	Ordinal      int   // position in the current version, advisory only
}

// HasEmbedding reports whether a vector point is recorded for this chunk.
func (c *Chunk) HasEmbedding() bool {
	return c.EmbeddingRef != 0
}

// HashHex returns the full content hash in hexadecimal.
func (c *Chunk) HashHex() string {
	return hex.EncodeToString(c.ContentHash[:])
}

// Validate checks the chunk for structural integrity.
func (c *Chunk) Validate() error {
	if c.StableID == "" {
		return ErrMissingStableID
	}
	if c.DocumentID <= 0 {
		return ErrInvalidDocumentID
	}
	if c.Text == "" {
		return ErrEmptyContent
	}
	if c.Type != ChunkSection && c.Type != ChunkParagraph {
		return ErrInvalidChunkType
	}
	if c.ContentHash == ([32]byte{}) {
		return ErrMissingContentHash
	}
	if c.Ordinal < 0 {
		return ErrInvalidOrdinal
	}
	return nil
}

// HashText computes the SHA-256 content hash of already-normalized text.
// Callers must normalize first; hashing raw text reintroduces formatting
// noise and defeats reuse detection.
func HashText(normalized string) [32]byte {
	return sha256.Sum256([]byte(normalized))
}
