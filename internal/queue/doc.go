// Package queue schedules document-indexing tasks.
//
// The queue is an explicit scheduler owning a priority heap, a
// per-document dedup set, and a retry hold list, plus a fixed-size worker
// pool. All state lives in the scheduler goroutine; enqueues, completion
// reports, and status requests reach it through channels, so no lock
// guards the scheduling decisions.
//
// # Task Lifecycle
//
//	pending -> processing -> completed
//	                      -> pending (retry wait) -> processing -> ...
//	                      -> failed (retry budget exhausted)
//
// A failed task is re-run from the top after a fixed delay until its
// retry budget runs out; only then is the document marked failed, with
// the error message retained. Other documents keep processing throughout.
//
// # Deduplication
//
// At most one task per document id is ever in flight. Enqueueing a
// document that is already pending, waiting out a retry delay, or
// processing drops the new task (Enqueue reports admitted false); the
// hold is released when the task completes or fails permanently.
//
// # Ordering
//
// Dispatch order is lowest priority value first, FIFO within a priority.
// Tasks for different documents may complete in any order; the
// concurrency limit (default 2) bounds how many run at once.
package queue
