// Package vecstore is the gateway to the vector collection on Postgres
// with the pgvector extension.
//
// Each chunk occupies one row keyed by a deterministic numeric point id
// derived from (document_id, ordinal), so re-indexing a position
// overwrites in place instead of accumulating stale points. The payload
// columns carry enough context (document id, stable chunk id, text,
// title, visibility) for search results and reverse lookups during
// deletion.
//
// Search uses cosine similarity through the pgvector <=> operator with an
// ivfflat index. A hidden = FALSE predicate is applied to every search
// unconditionally; caller filters compose under it via the tagged-variant
// Filter type and never override it.
//
// Transient failures (timeouts, unsent requests) are retried with linear
// backoff up to a configured attempt bound. Non-transient errors surface
// immediately.
package vecstore
