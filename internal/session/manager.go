// ABOUTME: Owns the single active MATLAB engine connection and its lifecycle.
// ABOUTME: Serializes all engine access and swaps sessions with rollback on failure.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/matlab-gateway/internal/engine"
)

// ErrSessionNotFound indicates the requested shared session name is not in
// the registry. Recoverable by listing sessions and retrying.
var ErrSessionNotFound = errors.New("session not found")

// ErrNameRequired indicates Connect was called with an empty session name.
var ErrNameRequired = errors.New("session name required")

// ConnectionError indicates the registry knew the session but binding to it
// failed. The previously active session is left untouched.
type ConnectionError struct {
	Name string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to session %q: %v", e.Name, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Kind distinguishes local engine processes from shared instances.
type Kind string

const (
	KindNone   Kind = ""
	KindLocal  Kind = "local"
	KindShared Kind = "shared"
)

// Snapshot is a read-only copy of the active session's state.
type Snapshot struct {
	Kind      Kind
	Name      string // set only for shared sessions
	Connected bool
	Uptime    time.Duration
	LastError string // most recent failed connection attempt, if any
}

// Manager owns the active engine handle. The handle is never exposed
// directly: callers run against it through With, which serializes access,
// and observe it through Current snapshots.
type Manager struct {
	registry engine.Registry
	logger   *slog.Logger

	// gate serializes every engine call and every session swap. A Connect
	// waits for in-flight calls to finish, and no call can start against
	// the old handle once a swap holds the gate.
	gate sync.Mutex

	// state guards the snapshot fields so Current never blocks behind a
	// long-running engine call.
	state       sync.RWMutex
	handle      engine.Handle
	kind        Kind
	name        string
	connectedAt time.Time
	lastErr     string
}

// NewManager creates a Manager bound to the given registry.
func NewManager(registry engine.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		logger:   logger.With("component", "session"),
	}
}

// Current returns a read-only snapshot of the active session. Never fails
// and never blocks behind in-flight engine calls.
func (m *Manager) Current() Snapshot {
	m.state.RLock()
	defer m.state.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Kind:      m.kind,
		Name:      m.name,
		Connected: m.handle != nil,
		LastError: m.lastErr,
	}
	if s.Connected {
		s.Uptime = time.Since(m.connectedAt)
	}
	return s
}

// ListDiscoverable returns the names of shared instances currently known to
// the registry. An empty list is a valid result.
func (m *Manager) ListDiscoverable() ([]string, error) {
	return m.registry.EnumerateShared()
}

// Connect binds to the named shared instance and makes it the active
// session. On any failure the previously active session is left completely
// untouched. On success the old handle is released only after the new
// session is observable.
func (m *Manager) Connect(ctx context.Context, name string) (Snapshot, error) {
	if name == "" {
		return m.Current(), ErrNameRequired
	}

	names, err := m.registry.EnumerateShared()
	if err != nil {
		return m.Current(), fmt.Errorf("enumerating sessions: %w", err)
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return m.Current(), fmt.Errorf("%w: %q", ErrSessionNotFound, name)
	}

	// Holding the gate: all in-flight calls have drained and no new call
	// can start against the old handle while the swap is in progress.
	m.gate.Lock()
	defer m.gate.Unlock()

	m.logger.Info("connecting to shared session", "name", name)
	newHandle, err := m.registry.BindShared(ctx, name)
	if err != nil {
		m.state.Lock()
		m.lastErr = err.Error()
		m.state.Unlock()
		m.logger.Warn("connection failed, keeping current session", "name", name, "error", err)
		return m.Current(), &ConnectionError{Name: name, Err: err}
	}

	m.state.Lock()
	old := m.handle
	m.handle = newHandle
	m.kind = KindShared
	m.name = name
	m.connectedAt = time.Now()
	m.lastErr = ""
	snap := m.snapshotLocked()
	m.state.Unlock()

	// The swap has committed; releasing the old handle can no longer tear
	// observable state.
	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.Warn("closing previous session handle", "error", err)
		}
	}

	m.logger.Info("connected to shared session", "name", name)
	return snap, nil
}

// EnsureLocal starts a local engine if no session is active. Idempotent:
// with a session already bound it returns the existing snapshot unchanged.
func (m *Manager) EnsureLocal(ctx context.Context) (Snapshot, error) {
	m.state.RLock()
	bound := m.handle != nil
	m.state.RUnlock()
	if bound {
		return m.Current(), nil
	}

	m.gate.Lock()
	defer m.gate.Unlock()
	if err := m.ensureLocalGated(ctx); err != nil {
		return m.Current(), err
	}
	return m.Current(), nil
}

// ensureLocalGated starts a local engine if unbound. Caller holds the gate.
func (m *Manager) ensureLocalGated(ctx context.Context) error {
	m.state.RLock()
	bound := m.handle != nil
	m.state.RUnlock()
	if bound {
		return nil
	}

	m.logger.Info("starting local MATLAB session")
	h, err := m.registry.CreateLocal(ctx)
	if err != nil {
		m.state.Lock()
		m.lastErr = err.Error()
		m.state.Unlock()
		return &ConnectionError{Name: "local", Err: err}
	}

	m.state.Lock()
	m.handle = h
	m.kind = KindLocal
	m.name = ""
	m.connectedAt = time.Now()
	m.lastErr = ""
	m.state.Unlock()
	return nil
}

// With runs fn against the active engine handle under the serialization
// gate, lazily starting a local session on first use. fn must not retain
// the handle beyond its return.
func (m *Manager) With(ctx context.Context, fn func(ctx context.Context, h engine.Handle) error) error {
	m.gate.Lock()
	defer m.gate.Unlock()

	if err := m.ensureLocalGated(ctx); err != nil {
		return err
	}

	m.state.RLock()
	h := m.handle
	m.state.RUnlock()
	return fn(ctx, h)
}

// Close releases the active handle. The logical session model does not
// change; the process is ending.
func (m *Manager) Close() {
	m.gate.Lock()
	defer m.gate.Unlock()

	m.state.Lock()
	h := m.handle
	m.handle = nil
	m.kind = KindNone
	m.name = ""
	m.state.Unlock()

	if h != nil {
		if err := h.Close(); err != nil {
			m.logger.Warn("closing session handle on shutdown", "error", err)
		}
	}
}
