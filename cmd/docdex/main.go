package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pmahlen/docdex/internal/config"
	"github.com/pmahlen/docdex/internal/docstore"
	"github.com/pmahlen/docdex/internal/embedder"
	"github.com/pmahlen/docdex/internal/indexer"
	"github.com/pmahlen/docdex/internal/log"
	"github.com/pmahlen/docdex/internal/mcp"
	"github.com/pmahlen/docdex/internal/queue"
	"github.com/pmahlen/docdex/internal/search"
	"github.com/pmahlen/docdex/internal/segment"
	"github.com/pmahlen/docdex/internal/vecstore"
	"github.com/pmahlen/docdex/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("docdex MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "docdex: %v\n", err)
		os.Exit(1)
	}
}

// pipeline ties the mutation paths to search-cache invalidation: every
// write that changes a document's chunks makes cached responses stale.
// It serves as the queue's Runner and the MCP server's Removing
// dependency.
type pipeline struct {
	indexer  *indexer.Indexer
	searcher *search.Service
}

func (p *pipeline) Run(ctx context.Context, task types.IndexTask) error {
	if _, err := p.indexer.IndexDocument(ctx, task); err != nil {
		return err
	}
	p.searcher.InvalidateCache()
	return nil
}

func (p *pipeline) RemoveDocument(ctx context.Context, documentID int64) error {
	if err := p.indexer.RemoveDocument(ctx, documentID); err != nil {
		return err
	}
	p.searcher.InvalidateCache()
	return nil
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Stdout carries the MCP protocol; all logging goes to stderr.
	logger := log.New(log.Config{
		Level:     cfg.Log.Level,
		JSON:      cfg.Log.JSON,
		AddSource: cfg.Log.AddSource,
	})

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("invalid configuration", "field", e.Field, "error", e.Message)
		}
		return fmt.Errorf("invalid configuration (%d error(s))", len(errs))
	}
	logger.Info("docdex starting", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	docs, err := docstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer docs.Close()

	providerName := cfg.Embedding.Provider
	if providerName == "" {
		providerName = embedder.DetectProvider()
	}
	provider, err := embedder.New(embedder.Config{
		Provider:          providerName,
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		BaseURL:           cfg.Embedding.BaseURL,
		Dimension:         cfg.Vector.Dimension,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create embedding provider: %w", err)
	}
	defer provider.Close()
	logger.Info("embedding provider ready",
		"provider", provider.Provider(),
		"model", provider.Model(),
		"dimension", provider.Dimension())

	// The collection's vector size follows the provider unless pinned in
	// the configuration.
	dimension := cfg.Vector.Dimension
	if dimension == 0 {
		dimension = provider.Dimension()
	}
	vectors, err := vecstore.Open(ctx, vecstore.Config{
		URL:        cfg.Vector.URL,
		Collection: cfg.Vector.Collection,
		Dimension:  dimension,
	}, logger)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer vectors.Close()

	embed := embedder.NewClient(provider, embedder.ClientConfig{
		BatchSize:    cfg.Embedding.BatchSize,
		MinBatchSize: cfg.Embedding.MinBatchSize,
		CacheSize:    cfg.Embedding.CacheSize,
	}, logger)

	idx := indexer.New(docs, vectors, embed, indexer.Config{
		Segment: segment.Options{
			TargetSize: cfg.Segment.TargetSize,
			Overlap:    cfg.Segment.Overlap,
			MinSize:    cfg.Segment.MinSize,
		},
	}, logger)
	searcher := search.NewService(vectors, embed, logger)
	p := &pipeline{indexer: idx, searcher: searcher}

	q := queue.New(p, docs, queue.Config{
		Concurrency:  cfg.Queue.Concurrency,
		PollInterval: time.Duration(cfg.Queue.PollIntervalMS) * time.Millisecond,
		MaxRetries:   cfg.Queue.MaxRetries,
		RetryDelay:   time.Duration(cfg.Queue.RetryDelayMS) * time.Millisecond,
	}, logger)
	if err := q.Start(ctx); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}

	server := mcp.NewServer(mcp.Config{DefaultPriority: cfg.Queue.DefaultPriority}, q, searcher, p, logger)
	serveErr := server.Serve(ctx)

	logger.Info("shutting down")
	if err := q.Stop(); err != nil {
		logger.Warn("queue shutdown", "error", err)
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("serve: %w", serveErr)
	}
	logger.Info("docdex stopped")
	return nil
}
