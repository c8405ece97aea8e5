// Package mcp implements the Model Context Protocol (MCP) server for docdex.
//
// The MCP server exposes four tools to AI assistants:
//   - queue_reindex: Queue a document for incremental re-indexing
//   - queue_status: Inspect the indexing queue
//   - search_documents: Semantic search over indexed documents
//   - remove_document: Remove a document from the index
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output.
// Stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: queue_reindex
//
// Queue a document snapshot for indexing. The call returns as soon as the
// task is admitted; indexing happens in the background:
//
//	Request:
//	{
//	  "name": "queue_reindex",
//	  "arguments": {
//	    "document_id": 42,
//	    "title": "Getting Started",
//	    "content": "## Install\n...",
//	    "hidden": false,
//	    "priority": 10
//	  }
//	}
//
//	Response:
//	{
//	  "document_id": 42,
//	  "accepted": true
//	}
//
// A document that is already queued or processing is not queued again;
// the response carries "accepted": false and a note. Progress is visible
// through queue_status or the document row's index status.
//
// # Tool: queue_status
//
// Inspect pending and in-flight work:
//
//	Response:
//	{
//	  "queue_length": 2,
//	  "processing_count": 1,
//	  "queued_tasks": [
//	    {"document_id": 7, "title": "FAQ", "priority": 5, "attempt": 0, ...}
//	  ],
//	  "processing_document_ids": [42]
//	}
//
// # Tool: search_documents
//
// Search indexed documents semantically:
//
//	Request:
//	{
//	  "name": "search_documents",
//	  "arguments": {
//	    "query": "how do I rotate credentials",
//	    "limit": 10,
//	    "document_ids": [42, 43],
//	    "min_score": 0.5
//	  }
//	}
//
//	Response:
//	{
//	  "total": 2,
//	  "duration_ms": 120,
//	  "cache_hit": false,
//	  "results": [
//	    {
//	      "document_id": 42,
//	      "chunk_ordinal": 3,
//	      "chunk_id": "42-security-rotating-credentials",
//	      "title": "Getting Started",
//	      "text": "## Rotating credentials\n...",
//	      "score": 0.91
//	    }
//	  ]
//	}
//
// Hidden documents never appear in results, regardless of arguments.
//
// # Tool: remove_document
//
// Remove a document's chunks and vectors and soft-delete its row:
//
//	Request:
//	{
//	  "name": "remove_document",
//	  "arguments": {"document_id": 42}
//	}
//
//	Response:
//	{"document_id": 42, "removed": true}
//
// Removal is idempotent; removing an unknown document succeeds.
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "document_id",
//	      "reason": "missing"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (store, embedder, vector backend)
//   - -32001: Queue is not running
//   - -32004: Empty search query
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "docdex": {
//	      "command": "/usr/local/bin/docdex",
//	      "env": {
//	        "DATABASE_URL": "postgres://localhost/docdex",
//	        "JINA_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
