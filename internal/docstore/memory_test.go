package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmahlen/docdex/pkg/types"
)

func TestMemoryStoreUpsertVersioning(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	version, err := store.UpsertDocument(ctx, testDocument(1, "content"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	version, err = store.UpsertDocument(ctx, testDocument(1, "content"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	version, err = store.UpsertDocument(ctx, testDocument(1, "different"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestMemoryStoreRevivesDeleted(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	_, err := store.UpsertDocument(ctx, testDocument(1, "content"))
	require.NoError(t, err)
	require.NoError(t, store.SoftDeleteDocument(ctx, 1))

	_, err = store.UpsertDocument(ctx, testDocument(1, "content"))
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, 1)
	require.NoError(t, err)
	assert.False(t, doc.Deleted)
}

func TestMemoryStoreChunkSnapshot(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	_, err := store.UpsertDocument(ctx, testDocument(1, "content"))
	require.NoError(t, err)

	require.NoError(t, store.ReplaceChunks(ctx, 1, 1, []types.Chunk{
		testChunk(1, 0, "alpha text"),
		testChunk(1, 1, "beta text"),
	}))

	chunks, version, err := store.LatestChunks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.Len(t, chunks, 2)

	// Mutating the returned slice must not leak into the store.
	chunks[0].Text = "mutated"
	again, _, err := store.LatestChunks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alpha text", again[0].Text)

	err = store.ReplaceChunks(ctx, 1, 0, []types.Chunk{testChunk(1, 0, "stale text")})
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestMemoryStoreStatusAndCounts(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	_, err := store.UpsertDocument(ctx, testDocument(1, "content"))
	require.NoError(t, err)

	require.NoError(t, store.SetIndexStatus(ctx, 1, types.StatusFailed, "boom"))
	status, err := store.GetIndexStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, status.Status)
	assert.Equal(t, "boom", status.Error)

	require.NoError(t, store.ReplaceChunks(ctx, 1, 1, []types.Chunk{testChunk(1, 0, "text")}))
	docs, chunks, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), docs)
	assert.Equal(t, int64(1), chunks)

	assert.ErrorIs(t, store.SetIndexStatus(ctx, 42, types.StatusPending, ""), ErrNotFound)
	_, err = store.GetIndexStatus(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
