package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmahlen/docdex/internal/normalize"
	"github.com/pmahlen/docdex/pkg/types"
)

func makeChunk(docID int64, text string, ordinal int, ref int64) types.Chunk {
	norm, sum := normalize.NormalizeAndHash(text)
	return types.Chunk{
		StableID:     StableID(docID, types.ChunkSection, sum),
		DocumentID:   docID,
		Type:         types.ChunkSection,
		Text:         text,
		NormText:     norm,
		ContentHash:  sum,
		EmbeddingRef: ref,
		Ordinal:      ordinal,
	}
}

func TestStableIDFormat(t *testing.T) {
	sum := normalize.Hash("foo")
	id := StableID(42, types.ChunkSection, sum)

	assert.Regexp(t, `^42-section-[0-9a-f]{16}$`, id)
}

func TestStableIDPositionIndependent(t *testing.T) {
	sum := normalize.Hash("same content")
	assert.Equal(t,
		StableID(7, types.ChunkParagraph, sum),
		StableID(7, types.ChunkParagraph, sum))
}

func TestStableIDSensitivity(t *testing.T) {
	a := normalize.Hash("alpha")
	b := normalize.Hash("beta")

	assert.NotEqual(t, StableID(1, types.ChunkSection, a), StableID(1, types.ChunkSection, b))
	assert.NotEqual(t, StableID(1, types.ChunkSection, a), StableID(2, types.ChunkSection, a))
	assert.NotEqual(t, StableID(1, types.ChunkSection, a), StableID(1, types.ChunkParagraph, a))
}

func TestClassifyAllNewOnFirstVersion(t *testing.T) {
	current := []types.Chunk{
		makeChunk(42, "foo", 0, 0),
		makeChunk(42, "bar", 1, 0),
	}

	res := Classify(current, nil)
	assert.Len(t, res.New, 2)
	assert.Empty(t, res.Reused)
	assert.Empty(t, res.Changed)
	assert.Empty(t, res.Removed)
	assert.False(t, res.InSync())
}

func TestClassifyUnchangedReusesEverything(t *testing.T) {
	previous := []types.Chunk{
		makeChunk(42, "foo", 0, 101),
		makeChunk(42, "bar", 1, 102),
	}
	current := []types.Chunk{
		makeChunk(42, "foo", 0, 0),
		makeChunk(42, "bar", 1, 0),
	}

	res := Classify(current, previous)
	require.Len(t, res.Reused, 2)
	assert.True(t, res.InSync())

	// Prior embedding refs carry over untouched.
	assert.Equal(t, int64(101), res.Reused[0].EmbeddingRef)
	assert.Equal(t, int64(102), res.Reused[1].EmbeddingRef)
}

func TestClassifyEditedChunkIsChangedInPlace(t *testing.T) {
	// Document 42 edited from "## A foo / ## B bar" to "## A foo / ## B baz".
	previous := []types.Chunk{
		makeChunk(42, "foo", 0, 201),
		makeChunk(42, "bar", 1, 202),
	}
	current := []types.Chunk{
		makeChunk(42, "foo", 0, 0),
		makeChunk(42, "baz", 1, 0),
	}

	res := Classify(current, previous)

	require.Len(t, res.Reused, 1)
	assert.Equal(t, int64(201), res.Reused[0].EmbeddingRef)

	require.Len(t, res.Changed, 1)
	assert.Equal(t, "baz", res.Changed[0].Chunk.Text)
	assert.Equal(t, int64(202), res.Changed[0].PrevRef)
	assert.Equal(t, 1, res.Changed[0].PrevOrdinal)

	assert.Empty(t, res.New)
	assert.Empty(t, res.Removed)
}

func TestClassifyRemovedChunk(t *testing.T) {
	previous := []types.Chunk{
		makeChunk(42, "foo", 0, 301),
		makeChunk(42, "bar", 1, 302),
		makeChunk(42, "tail", 2, 303),
	}
	current := []types.Chunk{
		makeChunk(42, "foo", 0, 0),
		makeChunk(42, "bar", 1, 0),
	}

	res := Classify(current, previous)
	assert.Len(t, res.Reused, 2)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "tail", res.Removed[0].Text)
}

func TestClassifyReorderIsPureReuse(t *testing.T) {
	// Moving sections around changes ordinals but not identities.
	previous := []types.Chunk{
		makeChunk(42, "foo", 0, 401),
		makeChunk(42, "bar", 1, 402),
	}
	current := []types.Chunk{
		makeChunk(42, "bar", 0, 0),
		makeChunk(42, "foo", 1, 0),
	}

	res := Classify(current, previous)
	assert.Len(t, res.Reused, 2)
	assert.True(t, res.InSync())
}

func TestClassifyInsertionShiftsOrdinalsWithoutChurn(t *testing.T) {
	// A new leading section shifts every sibling's ordinal; identity keeps
	// the siblings reused and only the insertion is new.
	previous := []types.Chunk{
		makeChunk(42, "foo", 0, 501),
		makeChunk(42, "bar", 1, 502),
	}
	current := []types.Chunk{
		makeChunk(42, "fresh intro", 0, 0),
		makeChunk(42, "foo", 1, 0),
		makeChunk(42, "bar", 2, 0),
	}

	res := Classify(current, previous)
	assert.Len(t, res.Reused, 2)
	require.Len(t, res.New, 1)
	assert.Equal(t, "fresh intro", res.New[0].Text)
	assert.Empty(t, res.Changed)
	assert.Empty(t, res.Removed)
}

func TestClassifyTruncatedIDCollisionDegradesToChanged(t *testing.T) {
	// Same stable id, different full hash: the collision re-embeds rather
	// than silently reusing the wrong vector.
	prev := makeChunk(42, "foo", 0, 601)
	cur := makeChunk(42, "foo", 0, 0)
	cur.ContentHash[31] ^= 0xFF // simulate distinct content behind the same prefix

	res := Classify([]types.Chunk{cur}, []types.Chunk{prev})
	require.Len(t, res.Changed, 1)
	assert.Equal(t, int64(601), res.Changed[0].PrevRef)
	assert.Empty(t, res.Reused)
	assert.Empty(t, res.Removed)
}

func TestClassifyEmptyCurrentRemovesAll(t *testing.T) {
	previous := []types.Chunk{
		makeChunk(42, "foo", 0, 701),
		makeChunk(42, "bar", 1, 702),
	}

	res := Classify(nil, previous)
	assert.Len(t, res.Removed, 2)
	assert.Empty(t, res.Reused)
}
