// ABOUTME: The figure tool: save/export/close MATLAB figure windows.

package tools

import (
	"context"
	"fmt"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/store"
)

func registerFigure(t *dispatch.Table, deps Deps) error {
	saveParams := dispatch.Descriptor{
		Tool:        "figure",
		Group:       GroupPlotting,
		Description: "Save the current or a numbered figure to a file",
		Optional: []dispatch.Param{
			{Name: "fig", Type: dispatch.TypeInt, Description: "Figure number (current figure if omitted)"},
			{Name: "fmt", Type: dispatch.TypeString, Default: "png",
				Enum:        []string{"png", "jpg", "svg", "pdf", "fig"},
				Description: "Output format"},
			{Name: "dpi", Type: dispatch.TypeInt, Default: 150,
				Description: "DPI for raster formats"},
			{Name: "path", Type: dispatch.TypeString, Description: "Output path (auto-generated if omitted)"},
		},
	}

	save := figureSaver(deps.Artifacts)

	d := saveParams
	d.Op = "save"
	if err := t.Register(d, save); err != nil {
		return err
	}
	// export is an alias of save in the original surface; both are kept so
	// callers using either name validate against the same shape.
	d = saveParams
	d.Op = "export"
	if err := t.Register(d, save); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "figure",
		Op:          "close",
		Group:       GroupPlotting,
		Description: "Close specific figures, or all figures",
		Optional: []dispatch.Param{
			{Name: "fig", Type: dispatch.TypeIntList, Description: "Figure numbers to close (all if omitted)"},
		},
	}, handleFigureClose)
}

func figureSaver(artifacts store.Store) dispatch.Handler {
	return func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		req := engine.ArtifactRequest{Kind: engine.ArtifactFigure}
		if v, ok := params["fig"].(int); ok {
			req.Figure = v
		}
		if v, ok := params["fmt"].(string); ok {
			req.Format = v
		}
		if v, ok := params["dpi"].(int); ok {
			req.DPI = v
		}
		if v, ok := params["path"].(string); ok {
			req.Path = v
		}

		path, err := h.SaveArtifact(ctx, req)
		if err != nil {
			return "", err
		}

		if artifacts != nil {
			a := &store.Artifact{Kind: string(engine.ArtifactFigure), Path: path, Format: req.Format}
			// Index failures are logged by the store layer; the save succeeded.
			_ = artifacts.CreateArtifact(ctx, a)
		}
		return fmt.Sprintf("Figure saved to %s", path), nil
	}
}

func handleFigureClose(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	figs, _ := params["fig"].([]int)
	if err := engine.CloseFigures(ctx, h, figs); err != nil {
		return "", err
	}
	if len(figs) > 0 {
		return fmt.Sprintf("Closed figure(s) %v", figs), nil
	}
	return "Closed all figures", nil
}
