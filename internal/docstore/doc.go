// Package docstore persists the document catalog: document rows with
// their version counters and index status, and the chunk snapshot of each
// document's latest indexed version.
//
// The chunk snapshot is what incremental re-indexing diffs against. It is
// replaced wholesale inside one transaction, so a crash mid-index leaves
// either the old snapshot or the new one, never a mix.
//
// Two implementations exist: SQLiteStore on modernc.org/sqlite (pure Go,
// WAL mode, versioned migrations) for production, and MemoryStore for
// tests.
package docstore
