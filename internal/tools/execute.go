// ABOUTME: The execute_matlab tool: run arbitrary MATLAB code on the active session.

package tools

import (
	"context"
	"fmt"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
)

func registerExecute(t *dispatch.Table, deps Deps) error {
	return t.Register(dispatch.Descriptor{
		Tool:        "execute_matlab",
		Group:       GroupEssentials,
		Description: "Execute MATLAB code and return output/errors",
		Required: []dispatch.Param{
			{Name: "code", Type: dispatch.TypeString, Description: "MATLAB code to execute"},
		},
	}, handleExecute)
}

func handleExecute(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	code := params["code"].(string)
	if code == "" {
		return "", &dispatch.Error{
			Kind:    dispatch.KindInvalidParams,
			Field:   "code",
			Message: "parameter \"code\" must not be empty",
		}
	}

	res, err := h.ExecuteCode(ctx, code)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return "", dispatch.EngineFault(fmt.Errorf("%s", res.ErrorText))
	}
	if res.Output == "" {
		return "Code executed successfully.", nil
	}
	return res.Output, nil
}
