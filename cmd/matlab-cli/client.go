// ABOUTME: Minimal MCP client over Streamable HTTP for talking to the gateway.
// ABOUTME: Handles initialize, session header plumbing, and tools/call.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type client struct {
	baseURL   string
	token     string
	http      *http.Client
	sessionID string
	nextID    int
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func newClient(cfg *Config) *client {
	return &client{
		baseURL: cfg.Gateway.URL,
		token:   cfg.Gateway.Token,
		http:    &http.Client{},
	}
}

// connect performs the MCP initialize handshake and captures the session ID.
func (c *client) connect(ctx context.Context) error {
	resp, header, err := c.post(ctx, rpcRequest{
		JSONRPC: "2.0",
		ID:      c.id(),
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-11-25",
			"clientInfo":      map[string]any{"name": "matlab-cli"},
		},
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize rejected: %s", resp.Error.Message)
	}
	c.sessionID = header.Get("Mcp-Session-Id")
	if c.sessionID == "" {
		return fmt.Errorf("gateway did not assign a session")
	}
	return nil
}

// callTool invokes one tool and returns the text result. A tool-level error
// comes back as a non-nil error carrying the gateway's message.
func (c *client) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, _, err := c.post(ctx, rpcRequest{
		JSONRPC: "2.0",
		ID:      c.id(),
		Method:  "tools/call",
		Params: map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s", resp.Error.Message)
	}

	var result toolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", fmt.Errorf("decoding tool result: %w", err)
	}
	text := ""
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}
	if result.IsError {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

func (c *client) close(ctx context.Context) {
	if c.sessionID == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/mcp", nil)
	if err != nil {
		return
	}
	req.Header.Set("Mcp-Session-Id", c.sessionID)
	c.auth(req)
	if resp, err := c.http.Do(req); err == nil {
		resp.Body.Close()
	}
}

func (c *client) post(ctx context.Context, body rpcRequest) (*rpcResponse, http.Header, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("Mcp-Session-Id", c.sessionID)
		req.Header.Set("Mcp-Protocol-Version", "2025-11-25")
	}
	c.auth(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("gateway returned %s: %s", httpResp.Status, bytes.TrimSpace(raw))
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, httpResp.Header, nil
}

func (c *client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *client) id() int {
	c.nextID++
	return c.nextID
}
