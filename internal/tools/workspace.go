// ABOUTME: The workspace tool: get/set/list/clear operations on engine variables.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
)

func registerWorkspace(t *dispatch.Table, deps Deps) error {
	varParam := dispatch.Param{
		Name: "var", Type: dispatch.TypeString,
		Description: "Variable name",
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "workspace",
		Op:          "list",
		Group:       GroupEssentials,
		Description: "List workspace variables with type and size",
	}, handleWorkspaceList); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "workspace",
		Op:          "get",
		Group:       GroupWorkspace,
		Description: "Get a variable's value",
		Required:    []dispatch.Param{varParam},
	}, handleWorkspaceGet); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "workspace",
		Op:          "set",
		Group:       GroupWorkspace,
		Description: "Set a variable's value",
		Required: []dispatch.Param{
			varParam,
			{Name: "value", Type: dispatch.TypeAny, Description: "Value to assign"},
		},
		Optional: []dispatch.Param{
			// The worker converts from JSON; the hint is advisory.
			{Name: "type_hint", Type: dispatch.TypeString, Description: "Type hint for value conversion"},
		},
	}, handleWorkspaceSet); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "workspace",
		Op:          "clear",
		Group:       GroupWorkspace,
		Description: "Clear one variable, or the whole workspace",
		Optional:    []dispatch.Param{varParam},
	}, handleWorkspaceClear)
}

func handleWorkspaceList(ctx context.Context, h engine.Handle, _ map[string]any) (string, error) {
	vars, err := h.ListVariables(ctx)
	if err != nil {
		return "", err
	}
	if len(vars) == 0 {
		return "Workspace is empty.", nil
	}
	out, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func handleWorkspaceGet(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	name := params["var"].(string)
	value, err := h.GetVariable(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Variable %q: %s", name, value), nil
}

func handleWorkspaceSet(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	name := params["var"].(string)
	if err := h.SetVariable(ctx, name, params["value"]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully set variable %q", name), nil
}

func handleWorkspaceClear(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	name, _ := params["var"].(string)
	if name != "" {
		if err := engine.ClearWorkspace(ctx, h, name); err != nil {
			return "", err
		}
		return fmt.Sprintf("Cleared variable %q", name), nil
	}
	if err := engine.ClearWorkspace(ctx, h); err != nil {
		return "", err
	}
	return "Cleared all workspace variables", nil
}
