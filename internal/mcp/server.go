package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pmahlen/docdex/internal/queue"
	"github.com/pmahlen/docdex/internal/search"
	"github.com/pmahlen/docdex/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "docdex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Indexing accepts re-index work and exposes queue introspection.
// *queue.Queue satisfies it.
type Indexing interface {
	Enqueue(task types.IndexTask) (bool, error)
	Status() (queue.Status, error)
}

// Searching runs semantic queries. *search.Service satisfies it.
type Searching interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Removing deletes a document's chunks and vectors and soft-deletes its
// row. *indexer.Indexer satisfies it.
type Removing interface {
	RemoveDocument(ctx context.Context, documentID int64) error
}

// Config adjusts server behavior. The zero value is ready to use.
type Config struct {
	DefaultPriority int // assigned when queue_reindex omits priority (0 means queue.DefaultPriority)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp             *server.MCPServer
	queue           Indexing
	searcher        Searching
	remover         Removing
	logger          *slog.Logger
	defaultPriority int
}

// NewServer creates an MCP server over an already-wired pipeline.
func NewServer(cfg Config, q Indexing, searcher Searching, remover Removing, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DefaultPriority == 0 {
		cfg.DefaultPriority = queue.DefaultPriority
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:             mcpServer,
		queue:           q,
		searcher:        searcher,
		remover:         remover,
		logger:          logger,
		defaultPriority: cfg.DefaultPriority,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin
// closes. Stdout carries the protocol; all logging goes to stderr.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server starting", "name", ServerName, "version", ServerVersion)
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(queueReindexTool(), s.handleQueueReindex)
	s.mcp.AddTool(queueStatusTool(), s.handleQueueStatus)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(removeDocumentTool(), s.handleRemoveDocument)
}
