package rpcapi

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// jsonResponse marshals data as the tool result's sole text content
// block, mirroring the pack's createJSONResponse.
func jsonResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResponse reports a tool-level failure inside the result rather
// than as a protocol error, per the MCP spec's guidance that the
// caller must see the error to self-correct (the same rationale the
// pack's createErrorResponse cites).
func errorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	resp, marshalErr := jsonResponse(map[string]interface{}{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	resp.IsError = true
	return resp, nil
}
