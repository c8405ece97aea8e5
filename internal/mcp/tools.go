package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmahlen/docdex/internal/queue"
	"github.com/pmahlen/docdex/internal/search"
	"github.com/pmahlen/docdex/internal/vecstore"
	"github.com/pmahlen/docdex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeQueueStopped  = -32001 // Queue is not accepting tasks
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleQueueReindex handles the queue_reindex tool invocation
func (s *Server) handleQueueReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, ok := getInt64(args, "document_id")
	if !ok || documentID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id must be a positive integer", map[string]interface{}{
			"param": "document_id",
		})
	}

	title, ok := args["title"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "title parameter is required", map[string]interface{}{
			"param":  "title",
			"reason": "missing",
		})
	}

	// Empty content is legal: it clears the document's chunks.
	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing",
		})
	}

	task := types.IndexTask{
		DocumentID: documentID,
		Title:      title,
		Content:    content,
		Hidden:     getBoolDefault(args, "hidden", false),
		Priority:   getIntDefault(args, "priority", s.defaultPriority),
	}

	accepted, err := s.queue.Enqueue(task)
	switch {
	case errors.Is(err, queue.ErrNotRunning):
		return nil, newMCPError(ErrorCodeQueueStopped, "queue is not running", nil)
	case errors.Is(err, types.ErrInvalidDocumentID), errors.Is(err, types.ErrInvalidAttempt):
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid task", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "enqueue failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"document_id": documentID,
		"accepted":    accepted,
	}
	if !accepted {
		response["note"] = "a task for this document is already queued or processing"
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQueueStatus handles the queue_status tool invocation
func (s *Server) handleQueueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.queue.Status()
	if errors.Is(err, queue.ErrNotRunning) {
		return nil, newMCPError(ErrorCodeQueueStopped, "queue is not running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get queue status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"queue_length":            st.QueueLength,
		"processing_count":        st.ProcessingCount,
		"queued_tasks":            st.QueuedTasks,
		"processing_document_ids": st.ProcessingIDs,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", search.DefaultLimit)
	if limit < 1 || limit > search.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	minScore := getFloatDefault(args, "min_score", 0)
	if minScore < 0 || minScore > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_score must be between 0.0 and 1.0", map[string]interface{}{
			"param": "min_score",
			"value": minScore,
		})
	}

	req := search.Request{
		Query:    query,
		Limit:    limit,
		MinScore: minScore,
		UseCache: getBoolDefault(args, "use_cache", true),
	}

	if raw, present := args["document_ids"]; present {
		ids, err := parseDocumentIDs(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "document_ids must be an array of integers", map[string]interface{}{
				"param": "document_ids",
			})
		}
		filter := vecstore.In("document_id", ids...)
		req.Filter = &filter
	}

	resp, err := s.searcher.Search(ctx, req)
	if errors.Is(err, search.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"document_id":   r.DocumentID,
			"chunk_ordinal": r.ChunkOrdinal,
			"chunk_id":      r.ChunkID,
			"title":         r.Title,
			"text":          r.Text,
			"score":         r.Score,
		})
	}

	response := map[string]interface{}{
		"total":       resp.Total,
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
		"results":     results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveDocument handles the remove_document tool invocation
func (s *Server) handleRemoveDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, ok := getInt64(args, "document_id")
	if !ok || documentID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id must be a positive integer", map[string]interface{}{
			"param": "document_id",
		})
	}

	if err := s.remover.RemoveDocument(ctx, documentID); err != nil {
		if errors.Is(err, types.ErrInvalidDocumentID) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid document_id", map[string]interface{}{
				"param": "document_id",
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "remove failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"document_id": documentID,
		"removed":     true,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// parseDocumentIDs converts a JSON array argument into int64 values.
func parseDocumentIDs(raw interface{}) ([]interface{}, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("not an array")
	}
	ids := make([]interface{}, 0, len(list))
	for _, v := range list {
		switch n := v.(type) {
		case float64:
			ids = append(ids, int64(n))
		case int:
			ids = append(ids, int64(n))
		case int64:
			ids = append(ids, n)
		default:
			return nil, fmt.Errorf("element %v is not an integer", v)
		}
	}
	return ids, nil
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getInt64 extracts an integer parameter, reporting whether it was present
// with a usable type
func getInt64(args map[string]interface{}, key string) (int64, bool) {
	switch val := args[key].(type) {
	case float64:
		return int64(val), true
	case int:
		return int64(val), true
	case int64:
		return val, true
	default:
		return 0, false
	}
}
