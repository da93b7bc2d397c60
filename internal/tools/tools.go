// ABOUTME: Registers the MATLAB tool surface on the dispatch table.
// ABOUTME: One file per tool; this file holds the group names and wiring.

package tools

import (
	"fmt"
	"log/slog"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/gate"
	"github.com/2389/matlab-gateway/internal/intent"
	"github.com/2389/matlab-gateway/internal/session"
	"github.com/2389/matlab-gateway/internal/store"
)

// Operation groups. GroupEssentials is the gate's always-on default.
const (
	GroupEssentials = gate.DefaultGroup
	GroupPlotting   = "plotting"
	GroupDataIO     = "data_io"
	GroupWorkspace  = "workspace+"
	GroupToolboxes  = "toolboxes"
	GroupSessions   = "sessions"
)

// Groups lists every operation group the tool surface uses.
func Groups() []string {
	return []string{GroupPlotting, GroupDataIO, GroupWorkspace, GroupToolboxes, GroupSessions}
}

// Deps carries the collaborators tool handlers need.
type Deps struct {
	Sessions   *session.Manager
	Gate       *gate.Gate
	Classifier *intent.Classifier
	// Artifacts is optional; when set, figure saves and MAT exports are
	// indexed in the history store.
	Artifacts store.Store
	Logger    *slog.Logger
}

// RegisterAll registers every tool on the table. Duplicate registration is
// a programming error and surfaces immediately.
func RegisterAll(t *dispatch.Table, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	for _, reg := range []func(*dispatch.Table, Deps) error{
		registerExecute,
		registerWorkspace,
		registerFigure,
		registerDataIO,
		registerEnv,
		registerHelp,
		registerMeta,
		registerSession,
	} {
		if err := reg(t, deps); err != nil {
			return fmt.Errorf("registering tools: %w", err)
		}
	}
	return nil
}
