// ABOUTME: The env tool: MATLAB version and toolbox queries.

package tools

import (
	"context"
	"strings"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
)

func registerEnv(t *dispatch.Table, deps Deps) error {
	if err := t.Register(dispatch.Descriptor{
		Tool:        "env",
		Op:          "version",
		DefaultOp:   true,
		Group:       GroupEssentials,
		Description: "Get MATLAB version and platform info",
	}, handleEnvVersion); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "env",
		Op:          "list_toolboxes",
		Group:       GroupToolboxes,
		Description: "List installed toolboxes",
	}, handleEnvListToolboxes); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "env",
		Op:          "check_toolbox",
		Group:       GroupToolboxes,
		Description: "Check whether a toolbox is installed",
		Required: []dispatch.Param{
			{Name: "name", Type: dispatch.TypeString, Description: "Toolbox name"},
		},
	}, handleEnvCheckToolbox)
}

func handleEnvVersion(ctx context.Context, h engine.Handle, _ map[string]any) (string, error) {
	return h.QueryVersion(ctx)
}

func handleEnvListToolboxes(ctx context.Context, h engine.Handle, _ map[string]any) (string, error) {
	toolboxes, err := h.ListToolboxes(ctx)
	if err != nil {
		return "", err
	}
	if len(toolboxes) == 0 {
		return "No toolboxes reported.", nil
	}
	return strings.Join(toolboxes, "\n"), nil
}

func handleEnvCheckToolbox(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	name := params["name"].(string)
	_, detail, err := engine.CheckToolbox(ctx, h, name)
	if err != nil {
		return "", err
	}
	return detail, nil
}
