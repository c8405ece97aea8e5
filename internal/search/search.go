package search

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pmahlen/docdex/internal/vecstore"
	"github.com/pmahlen/docdex/pkg/types"
)

// Limits and defaults.
const (
	DefaultLimit    = 10
	MaxLimit        = 100
	DefaultCacheTTL = 1 * time.Hour
	cacheEntries    = 1000
)

// ErrEmptyQuery is returned for a blank search query.
var ErrEmptyQuery = errors.New("query cannot be empty")

// VectorSearcher is the ranked-retrieval surface. *vecstore.Store
// satisfies it; hidden documents are excluded inside the gateway and
// cannot be re-included from here.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter *vecstore.Filter) ([]types.SearchResult, error)
	Dimension() int
}

// QueryEmbedder turns query text into a vector. *embedder.Client
// satisfies it.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Request contains parameters for a search operation.
type Request struct {
	Query    string
	Limit    int
	Filter   *vecstore.Filter // optional payload predicate, ANDed with the visibility guard
	MinScore float64          // drop results scoring below this (0 keeps all)
	UseCache bool
	CacheTTL time.Duration
}

// Response contains search results and metadata.
type Response struct {
	Results  []types.SearchResult
	Total    int
	Duration time.Duration
	CacheHit bool
}

// cacheEntry is a cached response with its expiry.
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Service runs semantic queries: embed the query text, rank against the
// vector collection, post-filter by score.
type Service struct {
	vectors VectorSearcher
	embed   QueryEmbedder
	logger  *slog.Logger

	cacheMu sync.Mutex
	cache   *lru.Cache[[32]byte, *cacheEntry]
}

// NewService creates a search service.
func NewService(vectors VectorSearcher, embed QueryEmbedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache, err := lru.New[[32]byte, *cacheEntry](cacheEntries)
	if err != nil {
		// Cannot happen with a positive constant size.
		panic(fmt.Sprintf("failed to create search cache: %v", err))
	}
	return &Service{
		vectors: vectors,
		embed:   embed,
		logger:  logger,
		cache:   cache,
	}
}

// Search embeds the query and returns ranked results. Hidden documents
// never appear regardless of the request's filter.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	vector, err := s.embed.EmbedOne(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.vectors.Search(ctx, vector, req.Limit, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if req.MinScore > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= req.MinScore {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	resp := &Response{
		Results:  results,
		Total:    len(results),
		Duration: time.Since(start),
	}

	if req.UseCache {
		s.storeInCache(req, resp)
	}

	s.logger.Debug("search completed",
		"query_length", len(req.Query),
		"limit", req.Limit,
		"results", resp.Total,
		"duration", resp.Duration)
	return resp, nil
}

// InvalidateCache drops every cached response. Called after index
// mutations; per-document invalidation is not worth tracking when the
// cache rebuilds on the next query anyway.
func (s *Service) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// validateRequest applies defaults and clamps.
func validateRequest(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = DefaultCacheTTL
	}
	return nil
}

func (s *Service) checkCache(req Request) (*Response, bool) {
	key := queryKey(req)
	now := time.Now()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil, false
	}
	return copyResponse(entry.response), true
}

func (s *Service) storeInCache(req Request, resp *Response) {
	entry := &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(req.CacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(queryKey(req), entry)
	s.cacheMu.Unlock()
}

// copyResponse guards cached state against caller mutation.
func copyResponse(src *Response) *Response {
	dst := &Response{
		Total:    src.Total,
		Duration: src.Duration,
		Results:  make([]types.SearchResult, len(src.Results)),
	}
	copy(dst.Results, src.Results)
	return dst
}

// queryKey derives a deterministic cache key from everything that shapes
// the result set.
func queryKey(req Request) [32]byte {
	var b strings.Builder
	b.WriteString(req.Query)
	fmt.Fprintf(&b, "|%d|%.4f", req.Limit, req.MinScore)
	writeFilterKey(&b, req.Filter)
	return sha256.Sum256([]byte(b.String()))
}

func writeFilterKey(b *strings.Builder, f *vecstore.Filter) {
	if f == nil {
		return
	}
	fmt.Fprintf(b, "|%s:%s:%v", f.Op, f.Field, f.Value)
	for i := range f.Sub {
		writeFilterKey(b, &f.Sub[i])
	}
}
