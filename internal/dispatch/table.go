// ABOUTME: Operation dispatch table mapping (tool, op) to handlers.
// ABOUTME: Validates parameters, checks the capability gate, and serializes engine access.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/gate"
)

// Handler executes one operation. For non-Direct descriptors h is the active
// engine handle, exclusively held for the duration of the call; for Direct
// descriptors h is nil. The returned string is the caller-facing result text.
type Handler func(ctx context.Context, h engine.Handle, params map[string]any) (string, error)

// Runner provides serialized access to the active engine handle. Satisfied
// by session.Manager.
type Runner interface {
	With(ctx context.Context, fn func(ctx context.Context, h engine.Handle) error) error
}

// Record describes one completed invocation for the history store.
type Record struct {
	RequestID string
	Tool      string
	Op        string
	ErrorKind string // empty on success
	Duration  time.Duration
}

// Recorder persists invocation records. Recording failures must not fail
// the invocation; implementations log and move on.
type Recorder interface {
	RecordInvocation(ctx context.Context, rec Record)
}

// Table routes tool calls to handlers. The descriptor registry is built at
// startup and immutable afterwards, so lookups take no lock.
type Table struct {
	entries  []*entry
	index    map[opKey]*entry
	defaults map[string]string // tool -> default op

	gate     *gate.Gate
	runner   Runner
	recorder Recorder
	logger   *slog.Logger
}

type entry struct {
	desc    Descriptor
	handler Handler
}

// Config contains construction options for a Table.
type Config struct {
	Gate     *gate.Gate
	Runner   Runner
	Recorder Recorder // optional
	Logger   *slog.Logger
}

// NewTable creates an empty dispatch table.
func NewTable(cfg Config) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		index:    make(map[opKey]*entry),
		defaults: make(map[string]string),
		gate:     cfg.Gate,
		runner:   cfg.Runner,
		recorder: cfg.Recorder,
		logger:   logger.With("component", "dispatch"),
	}
}

// Register adds a descriptor and its handler. A duplicate (tool, op) key is
// a programming error and fails immediately at startup.
func (t *Table) Register(desc Descriptor, handler Handler) error {
	if desc.Tool == "" {
		return fmt.Errorf("descriptor has no tool name")
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s/%s", desc.Tool, desc.Op)
	}
	key := desc.key()
	if _, exists := t.index[key]; exists {
		return fmt.Errorf("duplicate registration for %s/%s", desc.Tool, desc.Op)
	}
	if desc.DefaultOp {
		if prev, exists := t.defaults[desc.Tool]; exists {
			return fmt.Errorf("tool %q already has default op %q", desc.Tool, prev)
		}
		t.defaults[desc.Tool] = desc.Op
	}
	e := &entry{desc: desc, handler: handler}
	t.entries = append(t.entries, e)
	t.index[key] = e
	return nil
}

// Invoke validates and routes one tool call. args must not contain the op
// discriminator; the transport extracts it.
func (t *Table) Invoke(ctx context.Context, tool, op string, args map[string]any) (string, error) {
	start := time.Now()
	requestID := uuid.New().String()

	out, err := t.invoke(ctx, tool, op, args)

	kind := ""
	if err != nil {
		kind = string(KindOf(err))
	}
	t.logger.Debug("invoke",
		"request_id", requestID,
		"tool", tool,
		"op", op,
		"duration", time.Since(start),
		"error_kind", kind,
	)
	if t.recorder != nil {
		t.recorder.RecordInvocation(ctx, Record{
			RequestID: requestID,
			Tool:      tool,
			Op:        op,
			ErrorKind: kind,
			Duration:  time.Since(start),
		})
	}
	return out, err
}

func (t *Table) invoke(ctx context.Context, tool, op string, args map[string]any) (string, error) {
	if op == "" {
		op = t.defaults[tool]
	}
	e, ok := t.index[opKey{tool: tool, op: op}]
	if !ok {
		return "", errUnknownOperation(tool, op)
	}

	// Gate before validation: the caller learns the group is hidden, not
	// whether their parameters were right.
	if !t.gate.IsEnabled(e.desc.Group) {
		return "", errGroupNotEnabled(tool, e.desc.Group)
	}

	params, err := validateParams(&e.desc, args)
	if err != nil {
		return "", err
	}

	var out string
	if e.desc.Direct {
		out, err = e.handler(ctx, nil, params)
	} else {
		err = t.runner.With(ctx, func(ctx context.Context, h engine.Handle) error {
			var herr error
			out, herr = e.handler(ctx, h, params)
			return herr
		})
	}
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			return "", err
		}
		// Session sentinels keep their classification; anything else is
		// an engine fault surfaced verbatim.
		if kind := KindOf(err); kind != KindEngineFault {
			return "", err
		}
		return "", EngineFault(err)
	}
	return out, nil
}

// Advertised returns the descriptors whose group is currently enabled, in
// stable registration order.
func (t *Table) Advertised() []*Descriptor {
	var out []*Descriptor
	for _, e := range t.entries {
		if t.gate.IsEnabled(e.desc.Group) {
			out = append(out, &e.desc)
		}
	}
	return out
}

// Descriptors returns all registered descriptors in registration order.
func (t *Table) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(t.entries))
	for i, e := range t.entries {
		out[i] = &e.desc
	}
	return out
}
