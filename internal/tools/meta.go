// ABOUTME: Meta tools: route_intent suggests a group, select_mode enables one.
// ABOUTME: Both are Direct operations; they never touch the engine handle.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/gate"
)

func registerMeta(t *dispatch.Table, deps Deps) error {
	if err := t.Register(dispatch.Descriptor{
		Tool:        "route_intent",
		Group:       GroupEssentials,
		Description: "Suggest which tool group fits a free-text query",
		Direct:      true,
		Required: []dispatch.Param{
			{Name: "query", Type: dispatch.TypeString, Description: "User query to route"},
		},
	}, func(ctx context.Context, _ engine.Handle, params map[string]any) (string, error) {
		verdict := deps.Classifier.Classify(params["query"].(string))
		out, err := json.MarshalIndent(verdict, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "select_mode",
		Group:       GroupEssentials,
		Description: "Enable a tool group for the rest of the process lifetime",
		Direct:      true,
		Required: []dispatch.Param{
			{Name: "mode", Type: dispatch.TypeString, Description: "Group to enable"},
		},
	}, func(ctx context.Context, _ engine.Handle, params map[string]any) (string, error) {
		mode := params["mode"].(string)
		if err := deps.Gate.Enable(mode); err != nil {
			if errors.Is(err, gate.ErrUnknownGroup) {
				return "", &dispatch.Error{
					Kind:    dispatch.KindInvalidParams,
					Field:   "mode",
					Message: err.Error(),
				}
			}
			return "", err
		}
		deps.Logger.Info("tool group enabled", "group", mode)
		return fmt.Sprintf("Mode %q enabled for this session", mode), nil
	})
}
