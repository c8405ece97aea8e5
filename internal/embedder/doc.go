// Package embedder generates vector embeddings for chunk text through
// pluggable providers, with batching, caching, and adaptive payload-size
// backoff.
//
// # Architecture
//
// Provider is the low-level interface: one HTTP (or local) call per batch,
// fixed output dimension. Client sits on top and is what the pipeline
// uses:
//
//	provider, _ := embedder.New(embedder.Config{Provider: "jina", APIKey: key})
//	client := embedder.NewClient(provider, embedder.ClientConfig{}, logger)
//
//	vectors, err := client.EmbedMany(ctx, texts)
//	// vectors[i] corresponds to texts[i]; empty texts yield nil
//
// # Providers
//
//   - jina: Jina AI embeddings API, 1024 dimensions (default)
//   - openai: OpenAI embeddings API, 1536 dimensions
//   - local: deterministic hash-derived vectors, no network, for tests
//     and offline development
//
// Provider selection can come from the environment:
//
//  1. If DOCDEX_EMBEDDING_PROVIDER is set, use that provider
//  2. Otherwise use jina or openai if their API key env var is set
//  3. Otherwise fall back to local
//
// # Batching and payload limits
//
// Client batches texts (50 per request by default). When a provider
// rejects a request as too large, the batch size halves and the failing
// batch retries, down to a floor of 10; a rejection at the floor
// propagates. The loop is bounded by an explicit maximum halving depth.
//
// # Caching
//
// Vectors are cached in an LRU keyed by the SHA-256 of the text, so
// re-indexing sibling documents with repeated content skips provider
// calls. Cache reads return deep copies.
//
// # Rate limiting
//
// HTTP providers take a requests-per-second limit; the limiter blocks
// before each API call. Zero disables limiting.
package embedder
