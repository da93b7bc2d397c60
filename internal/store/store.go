// ABOUTME: History store types and interface for invocation and artifact records.
// ABOUTME: Recording is best-effort; a failed write never fails the tool call.

package store

import (
	"context"
	"time"
)

// Invocation is one completed tool call.
type Invocation struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Tool      string    `json:"tool"`
	Op        string    `json:"op,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"` // empty on success
	DurationMs int64    `json:"duration_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is one file the engine produced (figure export, MAT save).
type Artifact struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	Format    string    `json:"format,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists gateway history.
type Store interface {
	CreateInvocation(ctx context.Context, inv *Invocation) error
	RecentInvocations(ctx context.Context, limit int) ([]*Invocation, error)
	CreateArtifact(ctx context.Context, a *Artifact) error
	RecentArtifacts(ctx context.Context, limit int) ([]*Artifact, error)
	Close() error
}
