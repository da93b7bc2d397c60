// ABOUTME: Line-delimited JSON wire protocol between the gateway and MATLAB workers.
// ABOUTME: Implements Handle over any stream: child process stdio or a TCP socket.

package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// maxResponseLine bounds a single worker response line (8MB). Large variable
// dumps beyond this are a worker bug, not a gateway concern.
const maxResponseLine = 8 << 20

// wireRequest is one request to a MATLAB worker.
type wireRequest struct {
	ID     string         `json:"id"`
	Op     string         `json:"op"`
	Params map[string]any `json:"params,omitempty"`
}

// wireResponse is the worker's reply. Code distinguishes structured failures
// (e.g. "not_found") from free-text MATLAB errors in Error.
type wireResponse struct {
	ID     string `json:"id"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// conn drives one worker over a bidirectional stream. All calls are
// serialized on the stream: the worker evaluates one request at a time.
type conn struct {
	mu     sync.Mutex
	enc    *json.Encoder
	sc     *bufio.Scanner
	stream io.Closer
	closed bool

	// shutdown runs after the stream closes (e.g. reaping a child process).
	shutdown func() error
}

func newConn(stream io.ReadWriteCloser, shutdown func() error) *conn {
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 64*1024), maxResponseLine)
	return &conn{
		enc:      json.NewEncoder(stream),
		sc:       sc,
		stream:   stream,
		shutdown: shutdown,
	}
}

// call sends one request and blocks until the matching response arrives.
// The context is checked before sending only; an in-flight evaluation
// cannot be interrupted.
func (c *conn) call(ctx context.Context, op string, params map[string]any) (wireResponse, error) {
	if err := ctx.Err(); err != nil {
		return wireResponse{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return wireResponse{}, ErrHandleClosed
	}

	req := wireRequest{ID: uuid.New().String(), Op: op, Params: params}
	if err := c.enc.Encode(req); err != nil {
		return wireResponse{}, fmt.Errorf("sending %s request: %w", op, err)
	}

	for c.sc.Scan() {
		line := c.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp wireResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return wireResponse{}, fmt.Errorf("decoding %s response: %w", op, err)
		}
		// Skip stray responses from a previous, abandoned request.
		if resp.ID != req.ID {
			continue
		}
		return resp, nil
	}

	if err := c.sc.Err(); err != nil {
		return wireResponse{}, fmt.Errorf("reading %s response: %w", op, err)
	}
	return wireResponse{}, fmt.Errorf("%w: worker stream ended", ErrHandleClosed)
}

func (c *conn) ExecuteCode(ctx context.Context, code string) (ExecResult, error) {
	resp, err := c.call(ctx, "eval", map[string]any{"code": code})
	if err != nil {
		return ExecResult{}, err
	}
	return ExecResult{Output: resp.Output, ErrorText: resp.Error}, nil
}

func (c *conn) GetVariable(ctx context.Context, name string) (string, error) {
	resp, err := c.call(ctx, "get", map[string]any{"name": name})
	if err != nil {
		return "", err
	}
	if resp.Code == "not_found" {
		return "", fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("getting variable %q: %s", name, resp.Error)
	}
	return resp.Output, nil
}

func (c *conn) SetVariable(ctx context.Context, name string, value any) error {
	resp, err := c.call(ctx, "set", map[string]any{"name": name, "value": value})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("setting variable %q: %s", name, resp.Error)
	}
	return nil
}

func (c *conn) ListVariables(ctx context.Context) ([]Variable, error) {
	resp, err := c.call(ctx, "who", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("listing workspace: %s", resp.Error)
	}
	var vars []Variable
	if err := json.Unmarshal([]byte(resp.Output), &vars); err != nil {
		return nil, fmt.Errorf("parsing workspace listing: %w", err)
	}
	return vars, nil
}

func (c *conn) QueryVersion(ctx context.Context) (string, error) {
	code := "v = version; c = computer; fprintf('Version: %s\\nComputer: %s\\n', v, c);"
	res, err := c.ExecuteCode(ctx, code)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return "", fmt.Errorf("querying version: %s", res.ErrorText)
	}
	return strings.TrimSpace(res.Output), nil
}

func (c *conn) ListToolboxes(ctx context.Context) ([]string, error) {
	code := "tb = ver; for i = 1:numel(tb), fprintf('%s %s\\n', tb(i).Name, tb(i).Version); end"
	res, err := c.ExecuteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if res.ErrorText != "" {
		return nil, fmt.Errorf("listing toolboxes: %s", res.ErrorText)
	}
	var toolboxes []string
	for _, line := range strings.Split(res.Output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			toolboxes = append(toolboxes, line)
		}
	}
	return toolboxes, nil
}

func (c *conn) LookupDocs(ctx context.Context, name, mode string) (string, error) {
	var code string
	switch mode {
	case "", "help":
		code = "help " + name
	case "lookfor":
		code = "lookfor " + name
	case "which":
		code = "which -all " + name
	default:
		return "", fmt.Errorf("unknown docs mode %q", mode)
	}
	res, err := c.ExecuteCode(ctx, code)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return "", fmt.Errorf("looking up %q: %s", name, res.ErrorText)
	}
	return res.Output, nil
}

func (c *conn) SaveArtifact(ctx context.Context, req ArtifactRequest) (string, error) {
	switch req.Kind {
	case ArtifactFigure:
		return c.saveFigure(ctx, req)
	case ArtifactWorkspace:
		return c.saveWorkspace(ctx, req)
	default:
		return "", fmt.Errorf("unknown artifact kind %q", req.Kind)
	}
}

func (c *conn) saveFigure(ctx context.Context, req ArtifactRequest) (string, error) {
	format := req.Format
	if format == "" {
		format = "png"
	}
	dpi := req.DPI
	if dpi == 0 {
		dpi = 150
	}

	path := req.Path
	if path == "" {
		f, err := os.CreateTemp("", "matlab_fig_*."+format)
		if err != nil {
			return "", fmt.Errorf("creating figure output file: %w", err)
		}
		path = f.Name()
		f.Close()
	}

	handle := "gcf"
	if req.Figure > 0 {
		handle = fmt.Sprintf("figure(%d)", req.Figure)
	}

	var code string
	switch format {
	case "png", "jpg", "jpeg":
		code = fmt.Sprintf("print(%s, %s, '-d%s', '-r%d');", handle, Quote(path), format, dpi)
	case "svg", "pdf":
		// Vector formats need a display; fails in headless engines.
		code = fmt.Sprintf("print(%s, %s, '-d%s');", handle, Quote(path), format)
	case "fig":
		code = fmt.Sprintf("saveas(%s, %s, 'fig');", handle, Quote(path))
	default:
		return "", fmt.Errorf("unsupported figure format %q", format)
	}

	res, err := c.ExecuteCode(ctx, code)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return "", fmt.Errorf("saving figure: %s", res.ErrorText)
	}
	return path, nil
}

func (c *conn) saveWorkspace(ctx context.Context, req ArtifactRequest) (string, error) {
	path := req.Path
	if path == "" {
		f, err := os.CreateTemp("", "matlab_ws_*.mat")
		if err != nil {
			return "", fmt.Errorf("creating MAT output file: %w", err)
		}
		path = f.Name()
		f.Close()
	}

	var code string
	if len(req.Variables) > 0 {
		quoted := make([]string, 0, len(req.Variables)+1)
		quoted = append(quoted, Quote(path))
		for _, v := range req.Variables {
			quoted = append(quoted, Quote(v))
		}
		code = fmt.Sprintf("save(%s);", strings.Join(quoted, ", "))
	} else {
		code = fmt.Sprintf("save(%s);", Quote(path))
	}

	res, err := c.ExecuteCode(ctx, code)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return "", fmt.Errorf("saving workspace: %s", res.ErrorText)
	}
	return path, nil
}

func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	// Best effort: ask the worker to exit cleanly before closing the stream.
	_ = c.enc.Encode(wireRequest{ID: uuid.New().String(), Op: "quit"})
	err := c.stream.Close()
	c.mu.Unlock()

	if c.shutdown != nil {
		if serr := c.shutdown(); err == nil {
			err = serr
		}
	}
	return err
}

// Quote renders s as a single-quoted MATLAB string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
