package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// queueReindexTool returns the tool definition for queue_reindex
func queueReindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "queue_reindex",
		Description: "Queue a document for incremental re-indexing (fire-and-forget)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "integer",
					"description": "Positive document identifier",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Document title, stored on the row and on every vector payload",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full markdown content; an empty string clears the document's chunks",
				},
				"hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, the document's chunks are excluded from search results",
					"default":     false,
				},
				"priority": map[string]interface{}{
					"type":        "integer",
					"description": "Scheduling priority; lower values run sooner",
					"default":     10,
				},
			},
			Required: []string{"document_id", "title", "content"},
		},
	}
}

// queueStatusTool returns the tool definition for queue_status
func queueStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "queue_status",
		Description: "Inspect the indexing queue: pending tasks in dispatch order and documents currently processing",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over indexed documents; hidden documents are never returned",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"document_ids": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these document ids",
					"items": map[string]interface{}{
						"type": "integer",
					},
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity threshold (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "Serve repeated queries from the response cache",
					"default":     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

// removeDocumentTool returns the tool definition for remove_document
func removeDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document's chunks and vectors and soft-delete its row",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "integer",
					"description": "Positive document identifier",
				},
			},
			Required: []string{"document_id"},
		},
	}
}
