// ABOUTME: JSON-RPC 2.0 message types and the transport-independent method core.
// ABOUTME: Both the HTTP and stdio transports route through handleRequest.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/matlab-gateway/internal/dispatch"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise in initialize responses
const latestProtocolVersion = "2025-11-25"

const serverName = "matlab-gateway"
const serverVersion = "1.0.0"

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MCPResourceInfo represents an MCP resource definition.
type MCPResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// MCPListResourcesResult is the result for resources/list.
type MCPListResourcesResult struct {
	Resources []MCPResourceInfo `json:"resources"`
}

// MCPReadResourceParams are the params for resources/read.
type MCPReadResourceParams struct {
	URI string `json:"uri"`
}

// MCPResourceContents is one entry in a resources/read result.
type MCPResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// MCPReadResourceResult is the result for resources/read.
type MCPReadResourceResult struct {
	Contents []MCPResourceContents `json:"contents"`
}

// core implements the MCP methods independently of transport. The HTTP
// server adds session and auth handling on top; the stdio transport uses it
// directly.
type core struct {
	table     *dispatch.Table
	resources *Resources
	logger    *slog.Logger
}

// handleRequest routes one parsed JSON-RPC request. Returns nil for
// notifications, which get no response.
func (c *core) handleRequest(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"
	if isNotification {
		c.logger.Debug("accepted MCP notification", "method", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return c.handleInitialize(req)
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		return c.handleToolsList(req)
	case "tools/call":
		return c.handleToolsCall(ctx, req)
	case "resources/list":
		return c.handleResourcesList(req)
	case "resources/read":
		return c.handleResourcesRead(ctx, req)
	default:
		return errorResponse(req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

func (c *core) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	result := map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
	}
	return resultResponse(req.ID, result)
}

func (c *core) handleToolsList(req JSONRPCRequest) *JSONRPCResponse {
	tools, err := toolSchemas(c.table.Advertised())
	if err != nil {
		c.logger.Error("tool schema generation failed", "error", err)
		return errorResponse(req.ID, JSONRPCInternalError, "schema generation failed", nil)
	}

	c.logger.Debug("tools/list", "count", len(tools))
	return resultResponse(req.ID, MCPListToolsResult{Tools: tools})
}

func (c *core) handleToolsCall(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, JSONRPCInvalidParams, "invalid params", nil)
		}
	}
	if params.Name == "" {
		return errorResponse(req.ID, JSONRPCInvalidParams, "tool name is required", nil)
	}

	args := map[string]any{}
	if len(params.Arguments) > 0 && string(params.Arguments) != "null" {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return errorResponse(req.ID, JSONRPCInvalidParams, "arguments must be a JSON object", nil)
		}
	}

	// The op discriminator rides inside arguments; the table dispatches on
	// it separately from the validated parameter set.
	op := ""
	if v, ok := args["op"].(string); ok {
		op = v
		delete(args, "op")
	}

	requestID := uuid.New().String()
	c.logger.Debug("tools/call",
		"tool_name", params.Name,
		"op", op,
		"request_id", requestID,
	)

	out, err := c.table.Invoke(ctx, params.Name, op, args)
	if err != nil {
		return c.toolCallFailure(req.ID, params.Name, requestID, err)
	}

	return resultResponse(req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: out}},
	})
}

// toolCallFailure maps the dispatch error taxonomy onto the MCP surface.
// Malformed calls become JSON-RPC errors; runtime failures become tool
// results with isError set, so the caller can read the message and recover.
func (c *core) toolCallFailure(id json.RawMessage, tool, requestID string, err error) *JSONRPCResponse {
	kind := dispatch.KindOf(err)
	c.logger.Warn("tool call failed",
		"tool_name", tool,
		"request_id", requestID,
		"error_kind", string(kind),
		"error", err,
	)

	data := map[string]any{"kind": string(kind)}
	switch kind {
	case dispatch.KindUnknownOperation, dispatch.KindInvalidParams:
		return errorResponse(id, JSONRPCInvalidParams, err.Error(), data)
	case dispatch.KindGroupNotEnabled:
		return errorResponse(id, JSONRPCInvalidRequest, err.Error(), data)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(id, JSONRPCInternalError, "tool execution timed out", data)
	case errors.Is(err, context.Canceled):
		return errorResponse(id, JSONRPCInternalError, "request cancelled", data)
	}

	// session_not_found, connection_failed, engine_fault: execution outcomes
	// the caller can act on, not protocol errors.
	return resultResponse(id, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: err.Error()}},
		IsError: true,
	})
}

func (c *core) handleResourcesList(req JSONRPCRequest) *JSONRPCResponse {
	if c.resources == nil {
		return resultResponse(req.ID, MCPListResourcesResult{Resources: []MCPResourceInfo{}})
	}
	return resultResponse(req.ID, MCPListResourcesResult{Resources: c.resources.List()})
}

func (c *core) handleResourcesRead(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	var params MCPReadResourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, JSONRPCInvalidParams, "invalid params", nil)
		}
	}
	if params.URI == "" {
		return errorResponse(req.ID, JSONRPCInvalidParams, "resource uri is required", nil)
	}
	if c.resources == nil {
		return errorResponse(req.ID, JSONRPCInvalidParams, "resource not found", nil)
	}

	contents, err := c.resources.Read(ctx, params.URI)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return errorResponse(req.ID, JSONRPCInvalidParams, "resource not found", nil)
		}
		c.logger.Warn("resource read failed", "uri", params.URI, "error", err)
		return errorResponse(req.ID, JSONRPCInternalError, err.Error(), nil)
	}
	return resultResponse(req.ID, MCPReadResourceResult{Contents: []MCPResourceContents{contents}})
}

func resultResponse(id json.RawMessage, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string, data any) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	}
}
