package types

// SearchResult is a single ranked hit from a vector search.
type SearchResult struct {
	// Identification
	DocumentID   int64  `json:"document_id"`
	ChunkOrdinal int    `json:"chunk_ordinal"`
	ChunkID      string `json:"chunk_id"`

	// Content
	Text  string `json:"text"`
	Title string `json:"title"`

	// Scoring
	Score float64 `json:"score"` // cosine similarity, higher is better
}

// Validate checks the search result is well formed.
func (r *SearchResult) Validate() error {
	if r.DocumentID <= 0 {
		return ErrInvalidDocumentID
	}
	if r.ChunkOrdinal < 0 {
		return ErrInvalidOrdinal
	}
	if r.Text == "" {
		return ErrEmptyContent
	}
	return nil
}
