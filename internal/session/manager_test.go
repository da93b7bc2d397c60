// ABOUTME: Tests for session lifecycle: rollback, idempotence, serialization.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389/matlab-gateway/internal/engine"
)

// fakeHandle records lifecycle events and asserts exclusive use.
type fakeHandle struct {
	name     string
	closed   atomic.Bool
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (h *fakeHandle) enter() {
	n := h.inflight.Add(1)
	for {
		max := h.maxSeen.Load()
		if n <= max || h.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
}

func (h *fakeHandle) exit() { h.inflight.Add(-1) }

func (h *fakeHandle) ExecuteCode(_ context.Context, code string) (engine.ExecResult, error) {
	h.enter()
	defer h.exit()
	time.Sleep(time.Millisecond)
	return engine.ExecResult{Output: "ran " + code}, nil
}

func (h *fakeHandle) GetVariable(context.Context, string) (string, error)      { return "", nil }
func (h *fakeHandle) SetVariable(context.Context, string, any) error           { return nil }
func (h *fakeHandle) ListVariables(context.Context) ([]engine.Variable, error) { return nil, nil }
func (h *fakeHandle) SaveArtifact(context.Context, engine.ArtifactRequest) (string, error) {
	return "", nil
}
func (h *fakeHandle) QueryVersion(context.Context) (string, error)    { return h.name, nil }
func (h *fakeHandle) ListToolboxes(context.Context) ([]string, error) { return nil, nil }
func (h *fakeHandle) LookupDocs(context.Context, string, string) (string, error) {
	return "", nil
}
func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

// fakeRegistry serves canned shared sessions and counts local creations.
type fakeRegistry struct {
	mu          sync.Mutex
	shared      []string
	bindErr     error
	localCount  int
	lastCreated *fakeHandle
	lastBound   *fakeHandle
}

func (r *fakeRegistry) EnumerateShared() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shared...), nil
}

func (r *fakeRegistry) BindShared(_ context.Context, name string) (engine.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bindErr != nil {
		return nil, r.bindErr
	}
	h := &fakeHandle{name: "shared:" + name}
	r.lastBound = h
	return h, nil
}

func (r *fakeRegistry) CreateLocal(context.Context) (engine.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localCount++
	h := &fakeHandle{name: fmt.Sprintf("local-%d", r.localCount)}
	r.lastCreated = h
	return h, nil
}

func TestConnectUnknownSession(t *testing.T) {
	reg := &fakeRegistry{}
	m := NewManager(reg, nil)

	snap, err := m.Connect(context.Background(), "ghost")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if snap.Connected {
		t.Fatal("failed connect must leave the session state untouched")
	}
}

func TestConnectEmptyName(t *testing.T) {
	m := NewManager(&fakeRegistry{}, nil)

	if _, err := m.Connect(context.Background(), ""); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestConnectBindFailureKeepsCurrent(t *testing.T) {
	reg := &fakeRegistry{shared: []string{"r2024b"}}
	m := NewManager(reg, nil)

	// Establish a local session first.
	if _, err := m.EnsureLocal(context.Background()); err != nil {
		t.Fatal(err)
	}
	local := reg.lastCreated

	reg.mu.Lock()
	reg.bindErr = errors.New("connection refused")
	reg.mu.Unlock()

	_, err := m.Connect(context.Background(), "r2024b")
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if ce.Name != "r2024b" {
		t.Fatalf("ConnectionError names %q", ce.Name)
	}

	snap := m.Current()
	if !snap.Connected || snap.Kind != KindLocal {
		t.Fatalf("current session should still be the local one: %+v", snap)
	}
	if snap.LastError == "" {
		t.Fatal("failed connect should be observable in LastError")
	}
	if local.closed.Load() {
		t.Fatal("the surviving handle must not be closed")
	}
}

func TestConnectSwapsAndClosesOld(t *testing.T) {
	reg := &fakeRegistry{shared: []string{"r2024b"}}
	m := NewManager(reg, nil)

	if _, err := m.EnsureLocal(context.Background()); err != nil {
		t.Fatal(err)
	}
	local := reg.lastCreated

	snap, err := m.Connect(context.Background(), "r2024b")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if snap.Kind != KindShared || snap.Name != "r2024b" {
		t.Fatalf("snapshot after connect: %+v", snap)
	}
	if snap.LastError != "" {
		t.Fatalf("successful connect should clear LastError, got %q", snap.LastError)
	}
	if !local.closed.Load() {
		t.Fatal("old handle should be closed after the swap commits")
	}
}

func TestEnsureLocalIdempotent(t *testing.T) {
	reg := &fakeRegistry{}
	m := NewManager(reg, nil)

	first, err := m.EnsureLocal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.EnsureLocal(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.Kind != KindLocal || second.Kind != KindLocal {
		t.Fatalf("kinds: %v, %v", first.Kind, second.Kind)
	}
	reg.mu.Lock()
	count := reg.localCount
	reg.mu.Unlock()
	if count != 1 {
		t.Fatalf("EnsureLocal started %d engines, want 1", count)
	}
}

func TestWithStartsLocalLazily(t *testing.T) {
	reg := &fakeRegistry{}
	m := NewManager(reg, nil)

	if m.Current().Connected {
		t.Fatal("no session should exist before first use")
	}

	err := m.With(context.Background(), func(ctx context.Context, h engine.Handle) error {
		_, err := h.ExecuteCode(ctx, "1+1")
		return err
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if snap := m.Current(); !snap.Connected || snap.Kind != KindLocal {
		t.Fatalf("first With should have started a local session: %+v", snap)
	}
}

func TestWithSerializesEngineAccess(t *testing.T) {
	reg := &fakeRegistry{}
	m := NewManager(reg, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With(context.Background(), func(ctx context.Context, h engine.Handle) error {
				_, err := h.ExecuteCode(ctx, "x")
				return err
			})
		}()
	}
	wg.Wait()

	if max := reg.lastCreated.maxSeen.Load(); max > 1 {
		t.Fatalf("engine saw %d concurrent calls, want at most 1", max)
	}
}

func TestConnectWaitsForInflightCall(t *testing.T) {
	reg := &fakeRegistry{shared: []string{"r2024b"}}
	m := NewManager(reg, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = m.With(context.Background(), func(ctx context.Context, h engine.Handle) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	connected := make(chan struct{})
	go func() {
		defer close(connected)
		if _, err := m.Connect(context.Background(), "r2024b"); err != nil {
			t.Errorf("Connect: %v", err)
		}
	}()

	select {
	case <-connected:
		t.Fatal("Connect completed while a call was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	<-connected

	if !reg.lastCreated.closed.Load() {
		t.Fatal("old handle should be closed once the swap completes")
	}
}

func TestCloseReleasesHandle(t *testing.T) {
	reg := &fakeRegistry{}
	m := NewManager(reg, nil)

	if _, err := m.EnsureLocal(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Close()

	if !reg.lastCreated.closed.Load() {
		t.Fatal("Close should release the handle")
	}
	if m.Current().Connected {
		t.Fatal("Close should clear the session state")
	}
}
