// Package search implements semantic search over indexed document chunks.
//
// A query is embedded with the same provider that embedded the chunks,
// then ranked against the vector store by cosine similarity. Hidden
// documents are excluded inside the store and cannot be re-included by
// a request filter.
//
// # Basic Usage
//
//	svc := search.NewService(vectors, embedClient, logger)
//
//	resp, err := svc.Search(ctx, search.Request{
//	    Query: "how do I rotate credentials",
//	    Limit: 10,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%.3f  doc=%d ord=%d  %s\n",
//	        r.Score, r.DocumentID, r.ChunkOrdinal, r.Title)
//	}
//
// # Filtering
//
// Requests may carry a vecstore payload predicate. Filters compose with
// And/Or and are ANDed with the store's visibility guard:
//
//	resp, _ := svc.Search(ctx, search.Request{
//	    Query:  "retention policy",
//	    Filter: &vecstore.Filter{Op: vecstore.OpEq, Field: "document_id", Value: int64(42)},
//	})
//
// MinScore drops results scoring below the threshold after ranking:
//
//	resp, _ := svc.Search(ctx, search.Request{
//	    Query:    "retention policy",
//	    MinScore: 0.7,
//	})
//
// # Caching
//
// With UseCache set, responses are cached by a hash of the query text,
// limit, score threshold, and filter tree:
//
//	// First search: embeds the query and hits the store
//	resp1, _ := svc.Search(ctx, search.Request{Query: q, UseCache: true})
//
//	// Repeat search: served from cache, resp.CacheHit is true
//	resp2, _ := svc.Search(ctx, search.Request{Query: q, UseCache: true})
//
// Entries expire after CacheTTL (default 1 hour) and the cache holds at
// most 1000 responses with LRU eviction. Cached responses are deep
// copies; mutating a returned Response never corrupts the cache.
//
// InvalidateCache drops all entries and is called after every index
// mutation so cached results never outlive the chunks they rank.
package search
