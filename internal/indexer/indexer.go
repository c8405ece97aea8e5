package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pmahlen/docdex/internal/diff"
	"github.com/pmahlen/docdex/internal/docstore"
	"github.com/pmahlen/docdex/internal/normalize"
	"github.com/pmahlen/docdex/internal/segment"
	"github.com/pmahlen/docdex/internal/vecstore"
	"github.com/pmahlen/docdex/pkg/types"
)

// VectorIndex is the vector-store surface the pipeline reconciles against.
// *vecstore.Store satisfies it.
type VectorIndex interface {
	Upsert(ctx context.Context, points []vecstore.Point) error
	DeleteByDocument(ctx context.Context, documentID int64) error
	DeleteByChunkIDs(ctx context.Context, ids []string) error
	UpdateVisibility(ctx context.Context, documentID int64, hidden bool) error
}

// Embedder produces vectors for chunk texts. *embedder.Client satisfies it.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Indexer coordinates the per-document pipeline:
// segment -> identify -> diff -> embed changed -> reconcile vectors -> persist.
type Indexer struct {
	docs    docstore.Store
	vectors VectorIndex
	embed   Embedder
	segment segment.Options
	logger  *slog.Logger

	// Running totals, updated atomically.
	documentsIndexed int64
	documentsRemoved int64
	documentsFailed  int64
	chunksReused     int64
	chunksEmbedded   int64
	pointsDeleted    int64
}

// Config contains configuration for the indexer.
type Config struct {
	Segment segment.Options // chunk sizing; zero values use segment defaults
}

// Result reports what one indexing run did.
type Result struct {
	DocumentID int64
	Version    int64
	Chunks     int // chunks in the persisted snapshot
	Reused     int // chunks kept without touching provider or vector store
	Embedded   int // chunks sent to the embedding provider
	Upserted   int // vector points written
	Deleted    int // stale chunk records removed from the vector store
	Duration   time.Duration
}

// Stats is a snapshot of the running totals across all runs.
type Stats struct {
	DocumentsIndexed int64
	DocumentsRemoved int64
	DocumentsFailed  int64
	ChunksReused     int64
	ChunksEmbedded   int64
	PointsDeleted    int64
}

// New creates an Indexer on explicitly constructed service handles.
func New(docs docstore.Store, vectors VectorIndex, embed Embedder, cfg Config, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Indexer{
		docs:    docs,
		vectors: vectors,
		embed:   embed,
		segment: cfg.Segment,
		logger:  logger,
	}
}

// IndexDocument runs the full pipeline for one task snapshot. Only chunks
// whose content actually changed reach the embedding provider and the
// vector store; everything else is reused in place. Re-running the same
// task is idempotent.
func (idx *Indexer) IndexDocument(ctx context.Context, task types.IndexTask) (*Result, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	start := time.Now()
	res, err := idx.indexDocument(ctx, task)
	if err != nil {
		atomic.AddInt64(&idx.documentsFailed, 1)
		return nil, err
	}
	res.Duration = time.Since(start)

	atomic.AddInt64(&idx.documentsIndexed, 1)
	atomic.AddInt64(&idx.chunksReused, int64(res.Reused))
	atomic.AddInt64(&idx.chunksEmbedded, int64(res.Embedded))
	atomic.AddInt64(&idx.pointsDeleted, int64(res.Deleted))

	idx.logger.Info("document indexed",
		"document_id", task.DocumentID,
		"version", res.Version,
		"chunks", res.Chunks,
		"reused", res.Reused,
		"embedded", res.Embedded,
		"deleted", res.Deleted,
		"duration", res.Duration)
	return res, nil
}

func (idx *Indexer) indexDocument(ctx context.Context, task types.IndexTask) (*Result, error) {
	prevHidden := task.Hidden
	if prev, err := idx.docs.GetDocument(ctx, task.DocumentID); err == nil {
		prevHidden = prev.Hidden
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("load document %d: %w", task.DocumentID, err)
	}

	doc := &types.Document{
		ID:      task.DocumentID,
		Title:   task.Title,
		Content: task.Content,
		Hidden:  task.Hidden,
	}
	version, err := idx.docs.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("upsert document %d: %w", task.DocumentID, err)
	}

	previous, prevVersion, err := idx.docs.LatestChunks(ctx, task.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks for document %d: %w", task.DocumentID, err)
	}

	current := idx.buildChunks(&task, version)
	if len(current) == 0 {
		if len(previous) == 0 {
			return &Result{DocumentID: task.DocumentID, Version: version}, nil
		}
		return idx.clearDocument(ctx, task.DocumentID, version, len(previous))
	}

	res := diff.Classify(current, previous)
	idx.logger.Debug("chunk diff classified",
		"document_id", task.DocumentID,
		"reused", len(res.Reused),
		"changed", len(res.Changed),
		"new", len(res.New),
		"removed", len(res.Removed))

	vectors, err := idx.embedChanges(ctx, &res)
	if err != nil {
		return nil, err
	}

	points, staleIDs := buildPlan(&task, &res, vectors)

	// Upserts land before deletes so a crash in between leaves extra
	// points, never missing ones; the re-run converges.
	if len(points) > 0 {
		if err := idx.vectors.Upsert(ctx, points); err != nil {
			return nil, fmt.Errorf("upsert %d points for document %d: %w", len(points), task.DocumentID, err)
		}
	}
	if len(staleIDs) > 0 {
		if err := idx.vectors.DeleteByChunkIDs(ctx, staleIDs); err != nil {
			return nil, fmt.Errorf("delete %d stale points for document %d: %w", len(staleIDs), task.DocumentID, err)
		}
	}

	snapshot := assembleSnapshot(&res)
	if version != prevVersion || !res.InSync() {
		if err := idx.docs.ReplaceChunks(ctx, task.DocumentID, version, snapshot); err != nil {
			return nil, fmt.Errorf("persist %d chunks for document %d: %w", len(snapshot), task.DocumentID, err)
		}
	}

	if prevHidden != task.Hidden {
		if err := idx.vectors.UpdateVisibility(ctx, task.DocumentID, task.Hidden); err != nil {
			return nil, fmt.Errorf("update visibility for document %d: %w", task.DocumentID, err)
		}
	}

	return &Result{
		DocumentID: task.DocumentID,
		Version:    version,
		Chunks:     len(snapshot),
		Reused:     len(res.Reused),
		Embedded:   len(res.Changed) + len(res.New),
		Upserted:   len(points),
		Deleted:    len(staleIDs),
	}, nil
}

// RemoveDocument deletes every vector and chunk row for the document and
// soft-deletes the document record. Removing an unknown document is a no-op.
func (idx *Indexer) RemoveDocument(ctx context.Context, documentID int64) error {
	if documentID <= 0 {
		return types.ErrInvalidDocumentID
	}

	if err := idx.vectors.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors for document %d: %w", documentID, err)
	}
	if err := idx.docs.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks for document %d: %w", documentID, err)
	}
	if err := idx.docs.SoftDeleteDocument(ctx, documentID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("delete document %d: %w", documentID, err)
	}

	atomic.AddInt64(&idx.documentsRemoved, 1)
	idx.logger.Info("document removed", "document_id", documentID)
	return nil
}

// Stats returns the running totals.
func (idx *Indexer) Stats() Stats {
	return Stats{
		DocumentsIndexed: atomic.LoadInt64(&idx.documentsIndexed),
		DocumentsRemoved: atomic.LoadInt64(&idx.documentsRemoved),
		DocumentsFailed:  atomic.LoadInt64(&idx.documentsFailed),
		ChunksReused:     atomic.LoadInt64(&idx.chunksReused),
		ChunksEmbedded:   atomic.LoadInt64(&idx.chunksEmbedded),
		PointsDeleted:    atomic.LoadInt64(&idx.pointsDeleted),
	}
}

// buildChunks segments the snapshot and derives each piece's identity.
// Duplicate stable ids (identical content repeated in one document) keep
// the first occurrence; ordinals are re-numbered densely after the dedup.
func (idx *Indexer) buildChunks(task *types.IndexTask, version int64) []types.Chunk {
	pieces := segment.Segment(task.Content, idx.segment)
	if len(pieces) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(pieces))
	chunks := make([]types.Chunk, 0, len(pieces))
	for _, p := range pieces {
		norm, hash := normalize.NormalizeAndHash(p.Text)
		id := diff.StableID(task.DocumentID, p.Type, hash)
		if seen[id] {
			continue
		}
		seen[id] = true
		chunks = append(chunks, types.Chunk{
			StableID:    id,
			DocumentID:  task.DocumentID,
			Version:     version,
			Type:        p.Type,
			Heading:     p.Heading,
			Text:        p.Text,
			NormText:    norm,
			ContentHash: hash,
			Ordinal:     len(chunks),
		})
	}
	return chunks
}

// clearDocument handles a snapshot that segments to nothing: every chunk
// and vector for the document goes away, the document row stays.
func (idx *Indexer) clearDocument(ctx context.Context, documentID, version int64, prevCount int) (*Result, error) {
	if err := idx.vectors.DeleteByDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("delete vectors for document %d: %w", documentID, err)
	}
	if err := idx.docs.ReplaceChunks(ctx, documentID, version, nil); err != nil {
		return nil, fmt.Errorf("clear chunks for document %d: %w", documentID, err)
	}
	return &Result{DocumentID: documentID, Version: version, Deleted: prevCount}, nil
}

// embedChanges embeds exactly the changed and new chunk texts, in that
// order. Reused chunks never reach the provider.
func (idx *Indexer) embedChanges(ctx context.Context, res *diff.Result) ([][]float32, error) {
	n := len(res.Changed) + len(res.New)
	if n == 0 {
		return nil, nil
	}

	texts := make([]string, 0, n)
	for i := range res.Changed {
		texts = append(texts, res.Changed[i].Chunk.Text)
	}
	for i := range res.New {
		texts = append(texts, res.New[i].Text)
	}

	vectors, err := idx.embed.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", n, err)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding provider returned no vector for text %d", i)
		}
	}
	return vectors, nil
}

// buildPlan assigns a vector point to every chunk that needs writing and
// picks the ids whose points must go away.
//
// Changed chunks overwrite the point of the chunk they replace, so an edit
// never grows the collection. New chunks take the id derived from their
// position, probing forward when that id is already owned by a surviving
// sibling. Removed chunks are deleted by their numeric point id when they
// still own it, or by stable chunk id when a current chunk took the point
// over.
func buildPlan(task *types.IndexTask, res *diff.Result, vectors [][]float32) ([]vecstore.Point, []string) {
	taken := make(map[int64]bool, len(res.Reused)+len(res.Changed)+len(res.New))
	for i := range res.Reused {
		if c := &res.Reused[i]; c.HasEmbedding() {
			taken[c.EmbeddingRef] = true
		}
	}

	points := make([]vecstore.Point, 0, len(vectors))
	vi := 0
	claim := func(c *types.Chunk, preferred int64) {
		ref := preferred
		if ref == 0 {
			ref = vecstore.PointID(c.DocumentID, c.Ordinal)
		}
		for taken[ref] {
			ref = vecstore.NextPointID(ref)
		}
		taken[ref] = true
		c.EmbeddingRef = ref
		points = append(points, vecstore.Point{
			ID:         ref,
			Vector:     vectors[vi],
			DocumentID: c.DocumentID,
			ChunkID:    c.StableID,
			Ordinal:    c.Ordinal,
			Content:    c.Text,
			Title:      task.Title,
			Hidden:     task.Hidden,
		})
		vi++
	}

	// Changed chunks claim their previous points before any new chunk
	// probes, so an in-place overwrite is never stolen.
	for i := range res.Changed {
		claim(&res.Changed[i].Chunk, res.Changed[i].PrevRef)
	}
	for i := range res.New {
		claim(&res.New[i], 0)
	}

	stale := make([]string, 0, len(res.Removed))
	for i := range res.Removed {
		rm := &res.Removed[i]
		if rm.HasEmbedding() && !taken[rm.EmbeddingRef] {
			stale = append(stale, strconv.FormatInt(rm.EmbeddingRef, 10))
		} else {
			stale = append(stale, rm.StableID)
		}
	}
	return points, stale
}

// assembleSnapshot rebuilds the full chunk set for persistence, in document
// order.
func assembleSnapshot(res *diff.Result) []types.Chunk {
	out := make([]types.Chunk, 0, len(res.Reused)+len(res.Changed)+len(res.New))
	out = append(out, res.Reused...)
	for i := range res.Changed {
		out = append(out, res.Changed[i].Chunk)
	}
	out = append(out, res.New...)
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}
