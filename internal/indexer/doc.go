// Package indexer coordinates the incremental re-indexing pipeline for a
// single document.
//
// The indexer turns one queued task snapshot into vector-store state:
// segment the content, derive content-addressed chunk identities, diff
// against the previously persisted chunk set, embed only the chunks whose
// content changed, and reconcile the vector collection so repeated runs
// converge on the same points.
//
// # Basic Usage
//
//	idx := indexer.New(docs, vectors, embedClient, indexer.Config{}, logger)
//
//	res, err := idx.IndexDocument(ctx, types.IndexTask{
//	    DocumentID: 42,
//	    Title:      "Getting Started",
//	    Content:    "## Install\n...\n## Configure\n...",
//	})
//
//	fmt.Printf("%d chunks, %d embedded, %d reused\n",
//	    res.Chunks, res.Embedded, res.Reused)
//
// # Pipeline Stages
//
//  1. Upsert the document row; the version bumps only when content changed
//  2. Segment: split markdown into semantic pieces
//  3. Identify: normalize each piece and derive its stable id from the
//     content hash
//  4. Diff: classify against the stored chunk set as reused, changed,
//     new, or removed
//  5. Embed: send changed and new texts to the provider, nothing else
//  6. Reconcile: upsert points, then delete stale ones, then persist the
//     chunk snapshot
//
// # Incremental Reuse
//
// Chunk identity is derived from normalized content, so an unchanged
// chunk keeps its stable id across versions no matter where it moved in
// the document. Re-indexing unchanged content performs zero embedding
// calls and zero vector-store writes:
//
//	res1, _ := idx.IndexDocument(ctx, task) // Embedded: 5, Reused: 0
//	res2, _ := idx.IndexDocument(ctx, task) // Embedded: 0, Reused: 5
//
// An edited chunk overwrites the vector point of the chunk it replaces,
// so edits never grow the collection.
//
// # Crash Safety
//
// Writes are ordered upsert -> delete -> snapshot. A crash at any stage
// leaves at worst extra points in the collection; re-running the task
// reaches the same final state because point ids are deterministic.
package indexer
