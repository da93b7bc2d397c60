// ABOUTME: MCP resource surface: static docs plus live engine and history views.
// ABOUTME: Live resources read through the session manager's serialization gate.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/gate"
	"github.com/2389/matlab-gateway/internal/session"
	"github.com/2389/matlab-gateway/internal/store"
)

// ErrResourceNotFound indicates the URI is not a registered resource.
var ErrResourceNotFound = errors.New("resource not found")

// Resource URIs.
const (
	URIReadme            = "docs://readme"
	URILimitations       = "docs://limitations"
	URIEnvVersion        = "matlab://env/version"
	URIEnvToolboxes      = "matlab://env/toolboxes"
	URISessionInfo       = "matlab://session/info"
	URIWorkspaceSnapshot = "matlab://workspace/snapshot"
	URIHistoryRecent     = "matlab://history/recent"
)

const defaultLimitations = `# Known Limitations

- One MATLAB engine is active at a time; connecting to a shared session
  replaces the local one.
- Long-running MATLAB code blocks other tool calls until it finishes.
- Figures render off-screen; interactive figure windows are not available.
- Workspace values round-trip through JSON, so MATLAB-only types (tables,
  objects, function handles) are summarized rather than transferred.
`

// Resources serves the MCP resource list. Live resources acquire the engine
// the same way tools do, so they never observe a torn session swap.
type Resources struct {
	sessions *session.Manager
	groups   *gate.Gate
	history  store.Store
	readme   string
}

// ResourcesConfig holds construction options for Resources.
type ResourcesConfig struct {
	Sessions *session.Manager
	Gate     *gate.Gate
	History  store.Store // optional
	Readme   string      // optional; the readme resource is omitted when empty
}

// NewResources creates the resource surface.
func NewResources(cfg ResourcesConfig) *Resources {
	return &Resources{
		sessions: cfg.Sessions,
		groups:   cfg.Gate,
		history:  cfg.History,
		readme:   cfg.Readme,
	}
}

// List returns resource descriptors in a stable order.
func (r *Resources) List() []MCPResourceInfo {
	out := []MCPResourceInfo{}
	if r.readme != "" {
		out = append(out, MCPResourceInfo{
			URI: URIReadme, Name: "Server README",
			Description: "Usage guide for this MATLAB gateway",
			MimeType:    "text/markdown",
		})
	}
	out = append(out,
		MCPResourceInfo{
			URI: URILimitations, Name: "Known limitations",
			Description: "Constraints of the brokered MATLAB engine",
			MimeType:    "text/markdown",
		},
		MCPResourceInfo{
			URI: URIEnvVersion, Name: "MATLAB version",
			Description: "Version and platform of the active engine",
			MimeType:    "text/plain",
		},
		MCPResourceInfo{
			URI: URIEnvToolboxes, Name: "Installed toolboxes",
			Description: "Toolboxes reported by the active engine",
			MimeType:    "text/plain",
		},
		MCPResourceInfo{
			URI: URISessionInfo, Name: "Session info",
			Description: "Active session kind, uptime, and enabled tool groups",
			MimeType:    "application/json",
		},
		MCPResourceInfo{
			URI: URIWorkspaceSnapshot, Name: "Workspace snapshot",
			Description: "Variables in the active workspace",
			MimeType:    "application/json",
		},
	)
	if r.history != nil {
		out = append(out, MCPResourceInfo{
			URI: URIHistoryRecent, Name: "Recent invocations",
			Description: "Most recent tool invocations from the history store",
			MimeType:    "application/json",
		})
	}
	return out
}

// Read resolves one resource URI to its contents.
func (r *Resources) Read(ctx context.Context, uri string) (MCPResourceContents, error) {
	switch uri {
	case URIReadme:
		if r.readme == "" {
			return MCPResourceContents{}, ErrResourceNotFound
		}
		return MCPResourceContents{URI: uri, MimeType: "text/markdown", Text: r.readme}, nil

	case URILimitations:
		return MCPResourceContents{URI: uri, MimeType: "text/markdown", Text: defaultLimitations}, nil

	case URIEnvVersion:
		text, err := r.withEngine(ctx, func(ctx context.Context, h engine.Handle) (string, error) {
			return h.QueryVersion(ctx)
		})
		if err != nil {
			return MCPResourceContents{}, err
		}
		return MCPResourceContents{URI: uri, MimeType: "text/plain", Text: text}, nil

	case URIEnvToolboxes:
		text, err := r.withEngine(ctx, func(ctx context.Context, h engine.Handle) (string, error) {
			toolboxes, err := h.ListToolboxes(ctx)
			if err != nil {
				return "", err
			}
			return strings.Join(toolboxes, "\n"), nil
		})
		if err != nil {
			return MCPResourceContents{}, err
		}
		return MCPResourceContents{URI: uri, MimeType: "text/plain", Text: text}, nil

	case URISessionInfo:
		snap := r.sessions.Current()
		body := map[string]any{
			"kind":      string(snap.Kind),
			"connected": snap.Connected,
			"groups":    r.groups.Enabled(),
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
		return jsonContents(uri, body)

	case URIWorkspaceSnapshot:
		var vars []engine.Variable
		err := r.sessions.With(ctx, func(ctx context.Context, h engine.Handle) error {
			var werr error
			vars, werr = h.ListVariables(ctx)
			return werr
		})
		if err != nil {
			return MCPResourceContents{}, fmt.Errorf("reading workspace: %w", err)
		}
		if vars == nil {
			vars = []engine.Variable{}
		}
		return jsonContents(uri, vars)

	case URIHistoryRecent:
		if r.history == nil {
			return MCPResourceContents{}, ErrResourceNotFound
		}
		recent, err := r.history.RecentInvocations(ctx, 50)
		if err != nil {
			return MCPResourceContents{}, fmt.Errorf("reading history: %w", err)
		}
		if recent == nil {
			recent = []*store.Invocation{}
		}
		return jsonContents(uri, recent)
	}

	return MCPResourceContents{}, ErrResourceNotFound
}

func (r *Resources) withEngine(ctx context.Context, fn func(ctx context.Context, h engine.Handle) (string, error)) (string, error) {
	var out string
	err := r.sessions.With(ctx, func(ctx context.Context, h engine.Handle) error {
		var ferr error
		out, ferr = fn(ctx, h)
		return ferr
	})
	return out, err
}

func jsonContents(uri string, v any) (MCPResourceContents, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return MCPResourceContents{}, err
	}
	return MCPResourceContents{URI: uri, MimeType: "application/json", Text: string(raw)}, nil
}
