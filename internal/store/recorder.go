// ABOUTME: Adapts the Store interface to the dispatch Recorder contract.
// ABOUTME: Recording failures are logged and swallowed, never surfaced to callers.

package store

import (
	"context"
	"log/slog"

	"github.com/2389/matlab-gateway/internal/dispatch"
)

// Recorder bridges dispatch invocation records into a Store.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to the given store.
func NewRecorder(s Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger.With("component", "recorder")}
}

// RecordInvocation persists one dispatch record. Never fails the caller.
func (r *Recorder) RecordInvocation(ctx context.Context, rec dispatch.Record) {
	inv := &Invocation{
		RequestID:  rec.RequestID,
		Tool:       rec.Tool,
		Op:         rec.Op,
		ErrorKind:  rec.ErrorKind,
		DurationMs: rec.Duration.Milliseconds(),
	}
	if err := r.store.CreateInvocation(ctx, inv); err != nil {
		r.logger.Warn("recording invocation failed", "tool", rec.Tool, "error", err)
	}
}
