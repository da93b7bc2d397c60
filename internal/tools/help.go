// ABOUTME: The get_help tool: MATLAB documentation lookup (help/lookfor/which).

package tools

import (
	"context"
	"strings"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
)

func registerHelp(t *dispatch.Table, deps Deps) error {
	nameParam := dispatch.Param{
		Name: "name", Type: dispatch.TypeString, Description: "Function or topic name",
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "get_help",
		Op:          "help",
		DefaultOp:   true,
		Group:       GroupEssentials,
		Description: "Show usage and examples for a function or topic",
		Required:    []dispatch.Param{nameParam},
	}, docsHandler("help")); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "get_help",
		Op:          "lookfor",
		Group:       GroupEssentials,
		Description: "Keyword search across function summaries",
		Required:    []dispatch.Param{nameParam},
	}, docsHandler("lookfor")); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "get_help",
		Op:          "which",
		Group:       GroupEssentials,
		Description: "Show the path and toolbox providing a function",
		Required:    []dispatch.Param{nameParam},
	}, docsHandler("which"))
}

func docsHandler(mode string) dispatch.Handler {
	return func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		name := params["name"].(string)
		text, err := h.LookupDocs(ctx, name, mode)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "No documentation found for " + name, nil
		}
		return text, nil
	}
}
