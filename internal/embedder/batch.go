package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// maxHalvings bounds the batch-shrink loop independently of the configured
// sizes, so a misconfigured floor can never loop forever.
const maxHalvings = 8

// ClientConfig tunes the batching client. Zero values use the defaults.
type ClientConfig struct {
	BatchSize    int // texts per provider request
	MinBatchSize int // floor for payload-too-large shrinking
	CacheSize    int // LRU entries; 0 uses the cache default, <0 disables
}

// Client is the pipeline's embedding entry point. It filters empty texts,
// serves repeats from an LRU cache keyed by content hash, batches the rest
// to the provider, and shrinks the batch size on payload-too-large
// rejections.
type Client struct {
	provider  Provider
	cache     *Cache
	batchSize int
	minBatch  int
	logger    *slog.Logger
}

// NewClient wraps a provider with batching and caching.
func NewClient(provider Provider, cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	minBatch := cfg.MinBatchSize
	if minBatch <= 0 {
		minBatch = MinBatchSize
	}
	if minBatch > batchSize {
		minBatch = batchSize
	}

	var cache *Cache
	if cfg.CacheSize >= 0 {
		cache = NewCache(cfg.CacheSize)
	}

	return &Client{
		provider:  provider,
		cache:     cache,
		batchSize: batchSize,
		minBatch:  minBatch,
		logger:    logger,
	}
}

// EmbedMany embeds texts order-preserving: out[i] is the vector for
// texts[i]. Empty and whitespace-only texts are never sent to the provider
// and yield a nil vector at their position. Provider output is validated
// against the configured dimension; a mismatch is a configuration error and
// is not retried.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	// Resolve what actually needs a provider call.
	var positions []int
	var payload []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if c.cache != nil {
			if vec, ok := c.cache.Get(ComputeHash(text)); ok {
				out[i] = vec
				continue
			}
		}
		positions = append(positions, i)
		payload = append(payload, text)
	}

	size := c.batchSize
	halvings := 0
	for start := 0; start < len(payload); {
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}

		vectors, err := c.provider.EmbedBatch(ctx, payload[start:end])
		if err != nil {
			if errors.Is(err, ErrPayloadTooLarge) && size > c.minBatch && halvings < maxHalvings {
				size /= 2
				if size < c.minBatch {
					size = c.minBatch
				}
				halvings++
				c.logger.Debug("embedding batch too large, shrinking",
					"batch_size", size, "halvings", halvings)
				continue
			}
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}

		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(vectors), end-start)
		}

		want := c.provider.Dimension()
		for j, vec := range vectors {
			if len(vec) != want {
				return nil, fmt.Errorf("%w: provider returned %d, configured %d",
					ErrDimensionMismatch, len(vec), want)
			}
			pos := positions[start+j]
			out[pos] = vec
			if c.cache != nil {
				c.cache.Set(ComputeHash(texts[pos]), vec)
			}
		}
		start = end
	}

	return out, nil
}

// EmbedOne embeds a single text. Mostly used for search queries.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the provider's embedding dimension.
func (c *Client) Dimension() int { return c.provider.Dimension() }

// Provider returns the underlying provider name.
func (c *Client) Provider() string { return c.provider.Provider() }

// Model returns the underlying model name.
func (c *Client) Model() string { return c.provider.Model() }

// CacheSize returns the number of cached vectors.
func (c *Client) CacheSize() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Size()
}

// Close releases provider resources.
func (c *Client) Close() error { return c.provider.Close() }
