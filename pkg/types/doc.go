// Package types provides shared type definitions for the docdex server.
//
// This package defines domain types used across the indexing pipeline:
// documents, chunks, index tasks, and search results.
//
// # Core Types
//
// Document is the indexed view of a long-form document. The authoring side
// owns the content; docdex maintains the version counter and the index
// status fields:
//
//	doc := &types.Document{
//	    ID:      42,
//	    Title:   "Release notes",
//	    Content: "## Added\n...",
//	    Version: 3,
//	}
//
// Chunk is a semantically bounded slice of a document's text, the atomic
// unit of embedding and search. Its StableID is derived from the document
// id, the chunk type, and a prefix of the content hash, so identical
// content always maps to the same id regardless of position:
//
//	chunk := &types.Chunk{
//	    StableID:    "42-section-9f86d081e1527fff",
//	    DocumentID:  42,
//	    Type:        types.ChunkSection,
//	    Text:        sectionText,
//	    NormText:    normalized,
//	    ContentHash: types.HashText(normalized),
//	}
//
// EmbeddingRef holds the numeric vector point id once the chunk has been
// embedded; it is carried across versions unchanged when the content is
// unchanged, which is what makes re-indexing incremental.
//
// # Index Lifecycle
//
// IndexTask snapshots a document for the queue. IndexStatus tracks the
// per-document lifecycle:
//
//	pending -> processing -> completed
//	                      -> failed (after retries are exhausted)
//
// # Validation
//
// Domain types implement Validate methods returning sentinel errors from
// this package:
//
//	if err := chunk.Validate(); err != nil {
//	    return fmt.Errorf("bad chunk: %w", err)
//	}
package types
