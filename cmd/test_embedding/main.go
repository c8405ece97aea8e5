package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/pmahlen/docdex/internal/docstore"
	"github.com/pmahlen/docdex/internal/embedder"
	"github.com/pmahlen/docdex/internal/indexer"
	"github.com/pmahlen/docdex/internal/vecstore"
	"github.com/pmahlen/docdex/pkg/types"
)

// memoryVectorIndex captures vector writes so the pipeline can run
// without Postgres. Points are keyed by numeric point id so an overwrite
// at a claimed point replaces the row, like the real gateway's upsert.
type memoryVectorIndex struct {
	points map[int64]vecstore.Point
}

func newMemoryVectorIndex() *memoryVectorIndex {
	return &memoryVectorIndex{points: make(map[int64]vecstore.Point)}
}

func (m *memoryVectorIndex) Upsert(_ context.Context, points []vecstore.Point) error {
	for _, p := range points {
		m.points[p.ID] = p
	}
	return nil
}

func (m *memoryVectorIndex) DeleteByDocument(_ context.Context, documentID int64) error {
	for id, p := range m.points {
		if p.DocumentID == documentID {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *memoryVectorIndex) DeleteByChunkIDs(_ context.Context, ids []string) error {
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			delete(m.points, n)
			continue
		}
		for pid, p := range m.points {
			if p.ChunkID == id {
				delete(m.points, pid)
			}
		}
	}
	return nil
}

func (m *memoryVectorIndex) UpdateVisibility(_ context.Context, documentID int64, hidden bool) error {
	for id, p := range m.points {
		if p.DocumentID == documentID {
			p.Hidden = hidden
			m.points[id] = p
		}
	}
	return nil
}

const originalContent = `# Deployment Guide

## Prerequisites

A Postgres 15+ instance with the pgvector extension and an API key for
the embedding provider of your choice.

## Installing

Download the release binary and place it on your PATH. Point DATABASE_URL
at your Postgres instance and start the server.

## Upgrading

Stop the server, replace the binary, and start it again. Schema
migrations run automatically on startup.
`

// editedContent changes only the Upgrading section; everything above it
// should be reused on the second run.
const editedContent = `# Deployment Guide

## Prerequisites

A Postgres 15+ instance with the pgvector extension and an API key for
the embedding provider of your choice.

## Installing

Download the release binary and place it on your PATH. Point DATABASE_URL
at your Postgres instance and start the server.

## Upgrading

Stop the server, replace the binary, and start it again. Back up the
SQLite database first; schema migrations run automatically on startup
and are not reversible.
`

func main() {
	fmt.Println("Testing embedding integration...")

	// Provider selection follows the environment: DOCDEX_EMBEDDING_PROVIDER,
	// then API keys, then the deterministic local provider.
	provider, err := embedder.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to create embedding provider: %v", err)
	}
	defer provider.Close()
	fmt.Printf("Provider: %s (model %s, dimension %d)\n",
		provider.Provider(), provider.Model(), provider.Dimension())

	embed := embedder.NewClient(provider, embedder.ClientConfig{}, nil)
	docs := docstore.NewMemoryStore()
	vectors := newMemoryVectorIndex()
	idx := indexer.New(docs, vectors, embed, indexer.Config{}, nil)

	ctx := context.Background()
	task := types.IndexTask{
		DocumentID: 1,
		Title:      "Deployment Guide",
		Content:    originalContent,
	}

	first, err := idx.IndexDocument(ctx, task)
	if err != nil {
		log.Fatalf("Failed to index document: %v", err)
	}
	fmt.Printf("\nInitial index:\n")
	fmt.Printf("  Chunks: %d\n", first.Chunks)
	fmt.Printf("  Embedded: %d\n", first.Embedded)
	fmt.Printf("  Upserted: %d\n", first.Upserted)
	fmt.Printf("  Duration: %v\n", first.Duration)

	// Re-index with one section edited; unchanged chunks must not reach
	// the provider again.
	task.Content = editedContent
	second, err := idx.IndexDocument(ctx, task)
	if err != nil {
		log.Fatalf("Failed to re-index document: %v", err)
	}
	fmt.Printf("\nIncremental re-index:\n")
	fmt.Printf("  Chunks: %d\n", second.Chunks)
	fmt.Printf("  Reused: %d\n", second.Reused)
	fmt.Printf("  Embedded: %d\n", second.Embedded)
	fmt.Printf("  Deleted: %d\n", second.Deleted)
	fmt.Printf("  Duration: %v\n", second.Duration)

	fmt.Printf("\nVerification:\n")
	fmt.Printf("  Vectors stored: %d\n", len(vectors.points))

	switch {
	case len(vectors.points) == 0:
		fmt.Println("\n✗ FAILURE: No vectors were stored!")
		os.Exit(1)
	case second.Reused == 0:
		fmt.Println("\n✗ FAILURE: Re-index embedded every chunk instead of reusing unchanged ones!")
		os.Exit(1)
	default:
		fmt.Println("\n✓ SUCCESS: Embeddings generated and unchanged chunks reused!")
	}
}
