package embedder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBatchProvider scripts provider behavior for client tests.
type fakeBatchProvider struct {
	dimension  int
	calls      [][]string
	rejectOver int   // batches larger than this fail with ErrPayloadTooLarge (0 accepts all)
	failWith   error // non-nil fails every call
	shortBy    int   // drop this many vectors from each response
	wrongDim   bool  // return vectors one element too long
}

func (f *fakeBatchProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.rejectOver > 0 && len(texts) > f.rejectOver {
		return nil, fmt.Errorf("fake api: %w", ErrPayloadTooLarge)
	}

	dim := f.dimension
	if f.wrongDim {
		dim++
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if len(out) >= len(texts)-f.shortBy {
			break
		}
		out = append(out, fakeVector(text, dim))
	}
	return out, nil
}

func (f *fakeBatchProvider) Dimension() int   { return f.dimension }
func (f *fakeBatchProvider) Provider() string { return "fake" }
func (f *fakeBatchProvider) Model() string    { return "fake-model" }
func (f *fakeBatchProvider) Close() error     { return nil }

// fakeVector derives a distinguishable vector from the text so tests can
// verify position mapping.
func fakeVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(len(text)) + float32(i)
	}
	if len(text) > 0 {
		vec[0] += float32(text[0])
	}
	return vec
}

func TestEmbedManyOrderPreserved(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3}
	client := NewClient(fake, ClientConfig{BatchSize: 3, MinBatchSize: 1, CacheSize: -1}, nil)

	texts := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	out, err := client.EmbedMany(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, len(texts))

	// 8 texts at batch size 3 means three provider calls.
	require.Len(t, fake.calls, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, fake.calls[0])
	assert.Equal(t, []string{"delta", "echo", "foxtrot"}, fake.calls[1])
	assert.Equal(t, []string{"golf", "hotel"}, fake.calls[2])

	for i, text := range texts {
		assert.Equal(t, fakeVector(text, 3), out[i], "position %d", i)
	}
}

func TestEmbedManySkipsEmptyTexts(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3}
	client := NewClient(fake, ClientConfig{CacheSize: -1}, nil)

	out, err := client.EmbedMany(context.Background(), []string{"first", "", "   \n\t", "second"})
	require.NoError(t, err)
	require.Len(t, out, 4)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"first", "second"}, fake.calls[0])

	assert.NotNil(t, out[0])
	assert.Nil(t, out[1])
	assert.Nil(t, out[2])
	assert.Equal(t, fakeVector("second", 3), out[3])
}

func TestEmbedManyEmptyInput(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3}
	client := NewClient(fake, ClientConfig{}, nil)

	out, err := client.EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, fake.calls)
}

func TestEmbedManyShrinksOnPayloadTooLarge(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3, rejectOver: 25}
	client := NewClient(fake, ClientConfig{BatchSize: 50, MinBatchSize: 10, CacheSize: -1}, nil)

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %02d", i)
	}

	out, err := client.EmbedMany(context.Background(), texts)
	require.NoError(t, err)

	// One rejected 50-batch, then two accepted 25-batches.
	require.Len(t, fake.calls, 3)
	assert.Len(t, fake.calls[0], 50)
	assert.Len(t, fake.calls[1], 25)
	assert.Len(t, fake.calls[2], 25)

	require.Len(t, out, 50)
	for i, text := range texts {
		assert.Equal(t, fakeVector(text, 3), out[i], "position %d", i)
	}
}

func TestEmbedManyShrinkStopsAtFloor(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3, rejectOver: 1}
	client := NewClient(fake, ClientConfig{BatchSize: 50, MinBatchSize: 10, CacheSize: -1}, nil)

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %02d", i)
	}

	_, err := client.EmbedMany(context.Background(), texts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	// Shrinks 50 -> 25 -> 12 -> 10, then gives up at the floor.
	require.Len(t, fake.calls, 4)
	assert.Len(t, fake.calls[0], 50)
	assert.Len(t, fake.calls[1], 25)
	assert.Len(t, fake.calls[2], 12)
	assert.Len(t, fake.calls[3], 10)
}

func TestEmbedManyCacheHitSkipsProvider(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3}
	client := NewClient(fake, ClientConfig{}, nil)

	first, err := client.EmbedMany(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)

	second, err := client.EmbedMany(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)

	// Only the uncached text reaches the provider.
	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"gamma"}, fake.calls[1])

	assert.Equal(t, first[0], second[0])
	assert.Equal(t, 3, client.CacheSize())
}

func TestEmbedManyDimensionMismatch(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3, wrongDim: true}
	client := NewClient(fake, ClientConfig{CacheSize: -1}, nil)

	_, err := client.EmbedMany(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbedManyCountMismatch(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3, shortBy: 1}
	client := NewClient(fake, ClientConfig{CacheSize: -1}, nil)

	_, err := client.EmbedMany(context.Background(), []string{"one", "two"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestEmbedManyProviderErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	fake := &fakeBatchProvider{dimension: 3, failWith: boom}
	client := NewClient(fake, ClientConfig{CacheSize: -1}, nil)

	_, err := client.EmbedMany(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, boom)
}

func TestEmbedOne(t *testing.T) {
	fake := &fakeBatchProvider{dimension: 3}
	client := NewClient(fake, ClientConfig{CacheSize: -1}, nil)

	vec, err := client.EmbedOne(context.Background(), "query text")
	require.NoError(t, err)
	assert.Equal(t, fakeVector("query text", 3), vec)

	_, err = client.EmbedOne(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(&fakeBatchProvider{dimension: 3}, ClientConfig{}, nil)
	assert.Equal(t, DefaultBatchSize, client.batchSize)
	assert.Equal(t, MinBatchSize, client.minBatch)
	assert.NotNil(t, client.cache)

	// The floor never exceeds the batch size.
	clamped := NewClient(&fakeBatchProvider{dimension: 3}, ClientConfig{BatchSize: 5, MinBatchSize: 50}, nil)
	assert.Equal(t, 5, clamped.batchSize)
	assert.Equal(t, 5, clamped.minBatch)
}
