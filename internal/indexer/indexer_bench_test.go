package indexer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pmahlen/docdex/internal/docstore"
	"github.com/pmahlen/docdex/pkg/types"
)

// benchContent builds a markdown document with the given number of
// heading sections.
func benchContent(sections int) string {
	var sb strings.Builder
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&sb, "## Section %d\n", i)
		fmt.Fprintf(&sb, "Body text for section %d, long enough to read like prose rather than a fragment.\n\n", i)
	}
	return sb.String()
}

// BenchmarkIndexDocumentInitial measures the full pipeline on a cold store.
func BenchmarkIndexDocumentInitial(b *testing.B) {
	content := benchContent(50)
	bTask := types.IndexTask{DocumentID: 1, Title: "bench", Content: content}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		docs := docstore.NewMemoryStore()
		idx := New(docs, newFakeVectorIndex(), &fakeEmbedder{dimension: 8}, Config{}, nil)
		b.StartTimer()

		if _, err := idx.IndexDocument(context.Background(), bTask); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReindexUnchanged measures the reuse fast path: every chunk
// classifies as reused and nothing is embedded or written.
func BenchmarkReindexUnchanged(b *testing.B) {
	content := benchContent(50)
	bTask := types.IndexTask{DocumentID: 1, Title: "bench", Content: content}

	docs := docstore.NewMemoryStore()
	idx := New(docs, newFakeVectorIndex(), &fakeEmbedder{dimension: 8}, Config{}, nil)
	if _, err := idx.IndexDocument(context.Background(), bTask); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := idx.IndexDocument(context.Background(), bTask); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReindexOneChanged measures an edit touching a single section.
func BenchmarkReindexOneChanged(b *testing.B) {
	base := benchContent(50)
	edited := strings.Replace(base, "Body text for section 25,", "Rewritten body for section 25,", 1)

	docs := docstore.NewMemoryStore()
	idx := New(docs, newFakeVectorIndex(), &fakeEmbedder{dimension: 8}, Config{}, nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		content := base
		if i%2 == 1 {
			content = edited
		}
		if _, err := idx.IndexDocument(context.Background(), types.IndexTask{DocumentID: 1, Title: "bench", Content: content}); err != nil {
			b.Fatal(err)
		}
	}
}
