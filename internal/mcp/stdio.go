// ABOUTME: Stdio transport: line-delimited JSON-RPC over stdin/stdout.
// ABOUTME: Used when the gateway is spawned directly by an MCP client.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/2389/matlab-gateway/internal/dispatch"
)

// maxStdioLine bounds one inbound JSON-RPC message on the stdio transport.
const maxStdioLine = 4 << 20

// StdioServer serves MCP over newline-delimited JSON-RPC on a reader/writer
// pair, normally stdin and stdout. Log output must go elsewhere (stderr).
type StdioServer struct {
	core core
	in   io.Reader
	out  io.Writer
}

// StdioConfig holds construction options for a StdioServer.
type StdioConfig struct {
	Table     *dispatch.Table
	Resources *Resources
	Logger    *slog.Logger
	In        io.Reader
	Out       io.Writer
}

// NewStdioServer creates a stdio transport over the given streams.
func NewStdioServer(cfg StdioConfig) (*StdioServer, error) {
	if cfg.Table == nil {
		return nil, fmt.Errorf("dispatch table is required")
	}
	if cfg.In == nil || cfg.Out == nil {
		return nil, fmt.Errorf("input and output streams are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcp-stdio")

	return &StdioServer{
		core: core{table: cfg.Table, resources: cfg.Resources, logger: logger},
		in:   cfg.In,
		out:  cfg.Out,
	}, nil
}

// Serve reads messages until EOF or context cancellation. Malformed lines
// produce a parse error response; the loop keeps going.
func (s *StdioServer) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLine)
	enc := json.NewEncoder(s.out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if err := enc.Encode(errorResponse(nil, JSONRPCParseError, "invalid JSON", nil)); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
			continue
		}
		if req.JSONRPC != "2.0" {
			if err := enc.Encode(errorResponse(req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
			continue
		}

		resp := s.core.handleRequest(ctx, req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
