// ABOUTME: Tests for dispatch table routing: gating, default ops, error kinds.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/gate"
)

// stubHandle satisfies engine.Handle; individual methods are never reached
// in these tests because handlers ignore the handle.
type stubHandle struct{}

func (stubHandle) ExecuteCode(context.Context, string) (engine.ExecResult, error) {
	return engine.ExecResult{}, nil
}
func (stubHandle) GetVariable(context.Context, string) (string, error)     { return "", nil }
func (stubHandle) SetVariable(context.Context, string, any) error          { return nil }
func (stubHandle) ListVariables(context.Context) ([]engine.Variable, error) { return nil, nil }
func (stubHandle) SaveArtifact(context.Context, engine.ArtifactRequest) (string, error) {
	return "", nil
}
func (stubHandle) QueryVersion(context.Context) (string, error)            { return "", nil }
func (stubHandle) ListToolboxes(context.Context) ([]string, error)         { return nil, nil }
func (stubHandle) LookupDocs(context.Context, string, string) (string, error) { return "", nil }
func (stubHandle) Close() error                                            { return nil }

// countingRunner tracks how often the engine path was taken.
type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) With(ctx context.Context, fn func(ctx context.Context, h engine.Handle) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return fn(ctx, stubHandle{})
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type capturingRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *capturingRecorder) RecordInvocation(_ context.Context, rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func newTestTable(t *testing.T, g *gate.Gate) (*Table, *countingRunner, *capturingRecorder) {
	t.Helper()
	runner := &countingRunner{}
	recorder := &capturingRecorder{}
	table := NewTable(Config{Gate: g, Runner: runner, Recorder: recorder})

	ok := func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		return "ok", nil
	}

	if err := table.Register(Descriptor{
		Tool: "workspace", Op: "list", DefaultOp: true, Group: gate.DefaultGroup,
	}, ok); err != nil {
		t.Fatal(err)
	}
	if err := table.Register(Descriptor{
		Tool: "workspace", Op: "get", Group: "workspace+",
		Required: []Param{{Name: "var", Type: TypeString}},
	}, ok); err != nil {
		t.Fatal(err)
	}
	if err := table.Register(Descriptor{
		Tool: "figure", Op: "save", Group: "plotting",
	}, ok); err != nil {
		t.Fatal(err)
	}
	if err := table.Register(Descriptor{
		Tool: "route_intent", Group: gate.DefaultGroup, Direct: true,
		Required: []Param{{Name: "query", Type: TypeString}},
	}, func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		if h != nil {
			return "", fmt.Errorf("direct handler received an engine handle")
		}
		return "direct", nil
	}); err != nil {
		t.Fatal(err)
	}

	return table, runner, recorder
}

func TestInvokeUnknownOperation(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	table, _, _ := newTestTable(t, g)

	_, err := table.Invoke(context.Background(), "workspace", "teleport", nil)
	if KindOf(err) != KindUnknownOperation {
		t.Fatalf("expected unknown_operation, got %v", err)
	}

	_, err = table.Invoke(context.Background(), "nope", "", nil)
	if KindOf(err) != KindUnknownOperation {
		t.Fatalf("expected unknown_operation for unknown tool, got %v", err)
	}
}

func TestInvokeGroupNotEnabled(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	table, runner, _ := newTestTable(t, g)

	_, err := table.Invoke(context.Background(), "figure", "save", nil)
	if KindOf(err) != KindGroupNotEnabled {
		t.Fatalf("expected group_not_enabled, got %v", err)
	}
	if runner.count() != 0 {
		t.Fatal("gated call must not reach the engine")
	}

	if err := g.Enable("plotting"); err != nil {
		t.Fatal(err)
	}
	out, err := table.Invoke(context.Background(), "figure", "save", nil)
	if err != nil {
		t.Fatalf("enabled call failed: %v", err)
	}
	if out != "ok" {
		t.Fatalf("out = %q", out)
	}
}

func TestInvokeInvalidParamsSkipsEngine(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	if err := g.Enable("workspace+"); err != nil {
		t.Fatal(err)
	}
	table, runner, _ := newTestTable(t, g)

	_, err := table.Invoke(context.Background(), "workspace", "get", map[string]any{})
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindInvalidParams {
		t.Fatalf("expected invalid_params, got %v", err)
	}
	if de.Field != "var" {
		t.Fatalf("error should name var, got %q", de.Field)
	}
	if runner.count() != 0 {
		t.Fatal("invalid params must not reach the engine")
	}
}

func TestInvokeDefaultOpResolution(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	table, _, _ := newTestTable(t, g)

	out, err := table.Invoke(context.Background(), "workspace", "", nil)
	if err != nil {
		t.Fatalf("default op invoke: %v", err)
	}
	if out != "ok" {
		t.Fatalf("out = %q", out)
	}
}

func TestInvokeDirectSkipsRunner(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	table, runner, _ := newTestTable(t, g)

	out, err := table.Invoke(context.Background(), "route_intent", "", map[string]any{"query": "hi"})
	if err != nil {
		t.Fatalf("direct invoke: %v", err)
	}
	if out != "direct" {
		t.Fatalf("out = %q", out)
	}
	if runner.count() != 0 {
		t.Fatal("direct ops must not acquire the engine")
	}
}

func TestInvokeWrapsEngineFault(t *testing.T) {
	g := gate.New(nil)
	runner := &countingRunner{}
	table := NewTable(Config{Gate: g, Runner: runner})

	boom := errors.New("matlab exploded")
	if err := table.Register(Descriptor{
		Tool: "execute_matlab", Group: gate.DefaultGroup,
	}, func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		return "", boom
	}); err != nil {
		t.Fatal(err)
	}

	_, err := table.Invoke(context.Background(), "execute_matlab", "", nil)
	if KindOf(err) != KindEngineFault {
		t.Fatalf("expected engine_fault, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("original error should be wrapped, not replaced")
	}
}

func TestInvokeRecordsHistory(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	table, _, recorder := newTestTable(t, g)

	if _, err := table.Invoke(context.Background(), "workspace", "list", nil); err != nil {
		t.Fatal(err)
	}
	_, _ = table.Invoke(context.Background(), "figure", "save", nil)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.records) != 2 {
		t.Fatalf("got %d records, want 2", len(recorder.records))
	}
	if recorder.records[0].ErrorKind != "" {
		t.Fatalf("success record has error kind %q", recorder.records[0].ErrorKind)
	}
	if recorder.records[1].ErrorKind != string(KindGroupNotEnabled) {
		t.Fatalf("failure record kind = %q", recorder.records[1].ErrorKind)
	}
	if recorder.records[0].RequestID == "" || recorder.records[0].RequestID == recorder.records[1].RequestID {
		t.Fatal("each invocation needs a distinct request id")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	g := gate.New(nil)
	table := NewTable(Config{Gate: g, Runner: &countingRunner{}})
	ok := func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		return "", nil
	}

	if err := table.Register(Descriptor{Tool: "env", Op: "version", DefaultOp: true, Group: gate.DefaultGroup}, ok); err != nil {
		t.Fatal(err)
	}
	if err := table.Register(Descriptor{Tool: "env", Op: "version", Group: gate.DefaultGroup}, ok); err == nil {
		t.Fatal("duplicate (tool, op) should fail registration")
	}
	if err := table.Register(Descriptor{Tool: "env", Op: "other", DefaultOp: true, Group: gate.DefaultGroup}, ok); err == nil {
		t.Fatal("second default op should fail registration")
	}
}

func TestAdvertisedFollowsGate(t *testing.T) {
	g := gate.New([]string{"workspace+", "plotting"})
	table, _, _ := newTestTable(t, g)

	count := func() int { return len(table.Advertised()) }
	before := count()

	if err := g.Enable("plotting"); err != nil {
		t.Fatal(err)
	}
	if count() != before+1 {
		t.Fatalf("advertised %d after enabling plotting, want %d", count(), before+1)
	}
}
