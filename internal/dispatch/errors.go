// ABOUTME: Typed error taxonomy for tool dispatch.
// ABOUTME: Every failure carries a machine-checkable kind plus a human-readable message.

package dispatch

import (
	"errors"
	"fmt"

	"github.com/2389/matlab-gateway/internal/session"
)

// Kind classifies a dispatch failure. Kinds are stable strings so callers
// and the history store can match on them without importing Go types.
type Kind string

const (
	// KindUnknownOperation: the (tool, op) pair is not registered.
	KindUnknownOperation Kind = "unknown_operation"
	// KindGroupNotEnabled: the operation exists but its group is gated off.
	KindGroupNotEnabled Kind = "group_not_enabled"
	// KindInvalidParams: missing, extra, or mistyped parameter.
	KindInvalidParams Kind = "invalid_params"
	// KindSessionNotFound: requested shared session absent from the registry.
	KindSessionNotFound Kind = "session_not_found"
	// KindConnectionFailed: the registry knew the session but binding failed.
	KindConnectionFailed Kind = "connection_failed"
	// KindEngineFault: the engine call itself failed or returned an error.
	KindEngineFault Kind = "engine_fault"
)

// Error is a dispatch failure with a classified kind. Field is set for
// KindInvalidParams and names the offending parameter.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the dispatch kind from err, classifying session-layer
// sentinels on the way through. Unrecognized errors are engine faults.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return KindSessionNotFound
	case errors.Is(err, session.ErrNameRequired):
		return KindInvalidParams
	}
	var ce *session.ConnectionError
	if errors.As(err, &ce) {
		return KindConnectionFailed
	}
	return KindEngineFault
}

func errUnknownOperation(tool, op string) *Error {
	msg := fmt.Sprintf("unknown tool %q", tool)
	if op != "" {
		msg = fmt.Sprintf("unknown operation %q for tool %q", op, tool)
	}
	return &Error{Kind: KindUnknownOperation, Message: msg}
}

func errGroupNotEnabled(tool, group string) *Error {
	return &Error{
		Kind: KindGroupNotEnabled,
		Message: fmt.Sprintf(
			"tool %q belongs to group %q which is not enabled; enable it with select_mode",
			tool, group),
	}
}

func errInvalidParams(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidParams,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// EngineFault wraps an engine-level failure, preserving its message verbatim.
func EngineFault(err error) *Error {
	return &Error{Kind: KindEngineFault, Message: err.Error(), Err: err}
}
