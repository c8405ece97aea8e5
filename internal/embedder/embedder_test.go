package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewCache(100)

	hash := ComputeHash("some chunk text")
	_, ok := cache.Get(hash)
	assert.False(t, ok)

	cache.Set(hash, []float32{1, 2, 3})
	vec, ok := cache.Get(hash)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 1, cache.Size())
}

func TestCacheGetReturnsCopy(t *testing.T) {
	cache := NewCache(100)
	cache.Set("h", []float32{1, 2, 3})

	vec, ok := cache.Get("h")
	require.True(t, ok)
	vec[0] = 99

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)

	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(10)
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("hello")
	h2 := ComputeHash("hello")
	h3 := ComputeHash("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
