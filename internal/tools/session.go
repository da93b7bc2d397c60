// ABOUTME: The session tool: discover, attach to, and inspect MATLAB sessions.
// ABOUTME: All ops are Direct; they talk to the manager, never to a handle.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"time"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/session"
)

func registerSession(t *dispatch.Table, deps Deps) error {
	if err := t.Register(dispatch.Descriptor{
		Tool:        "session",
		Op:          "list",
		DefaultOp:   true,
		Group:       GroupSessions,
		Description: "List discoverable shared MATLAB sessions",
		Direct:      true,
	}, func(ctx context.Context, _ engine.Handle, _ map[string]any) (string, error) {
		names, err := deps.Sessions.ListDiscoverable()
		if err != nil {
			return "", fmt.Errorf("listing sessions: %w", err)
		}
		out, err := json.MarshalIndent(map[string]any{
			"sessions": names,
			"count":    len(names),
		}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "session",
		Op:          "connect",
		Group:       GroupSessions,
		Description: "Connect to a named shared MATLAB session",
		Direct:      true,
		Required: []dispatch.Param{
			{Name: "session_name", Type: dispatch.TypeString, Description: "Session to attach to"},
		},
	}, func(ctx context.Context, _ engine.Handle, params map[string]any) (string, error) {
		name := params["session_name"].(string)
		snap, err := deps.Sessions.Connect(ctx, name)
		if err != nil {
			return "", err
		}
		return renderSnapshot(snap, fmt.Sprintf("Connected to session %q", name))
	}); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "session",
		Op:          "current",
		Group:       GroupSessions,
		Description: "Show the active session and its uptime",
		Direct:      true,
	}, func(ctx context.Context, _ engine.Handle, _ map[string]any) (string, error) {
		snap := deps.Sessions.Current()
		if !snap.Connected {
			return renderSnapshot(snap, "No active session; one starts on the next engine call")
		}
		return renderSnapshot(snap, "")
	})
}

func renderSnapshot(snap session.Snapshot, note string) (string, error) {
	body := map[string]any{
		"kind":      string(snap.Kind),
		"connected": snap.Connected,
	}
	if snap.Name != "" {
		body["name"] = snap.Name
	}
	if snap.Connected {
		body["uptime"] = snap.Uptime.Round(time.Second).String()
	}
	if snap.LastError != "" {
		body["last_error"] = snap.LastError
	}
	if note != "" {
		body["note"] = note
	}
	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
