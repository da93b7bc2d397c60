// ABOUTME: The data_io tool: import/export data files and load/save MAT files.

package tools

import (
	"context"
	"fmt"

	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/store"
)

func registerDataIO(t *dispatch.Table, deps Deps) error {
	pathParam := dispatch.Param{
		Name: "path", Type: dispatch.TypeString, Description: "File path",
	}
	fmtParam := dispatch.Param{
		Name: "fmt", Type: dispatch.TypeString,
		Description: "File format (csv, txt, xlsx, json); inferred from the extension if omitted",
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "data_io",
		Op:          "import",
		Group:       GroupDataIO,
		Description: "Import a data file into a workspace variable",
		Required:    []dispatch.Param{pathParam},
		Optional:    []dispatch.Param{fmtParam},
	}, handleImport); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "data_io",
		Op:          "export",
		Group:       GroupDataIO,
		Description: "Export a workspace variable to a file",
		Required: []dispatch.Param{
			pathParam,
			{Name: "var", Type: dispatch.TypeString, Description: "Variable to export"},
		},
		Optional: []dispatch.Param{fmtParam},
	}, handleExport); err != nil {
		return err
	}

	if err := t.Register(dispatch.Descriptor{
		Tool:        "data_io",
		Op:          "load_mat",
		Group:       GroupDataIO,
		Description: "Load a MAT file into the workspace",
		Required:    []dispatch.Param{pathParam},
		Optional: []dispatch.Param{
			{Name: "var", Type: dispatch.TypeString, Description: "Load only this variable"},
		},
	}, handleLoadMAT); err != nil {
		return err
	}

	return t.Register(dispatch.Descriptor{
		Tool:        "data_io",
		Op:          "save_mat",
		Group:       GroupDataIO,
		Description: "Save workspace variables to a MAT file",
		Required:    []dispatch.Param{pathParam},
		Optional: []dispatch.Param{
			{Name: "variables", Type: dispatch.TypeStringList,
				Description: "Variables to save (all if omitted)"},
		},
	}, matSaver(deps.Artifacts))
}

func handleImport(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	path := params["path"].(string)
	format, _ := params["fmt"].(string)
	varName, err := engine.ImportData(ctx, h, path, format)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Data imported from %s into %q", path, varName), nil
}

func handleExport(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	path := params["path"].(string)
	varName := params["var"].(string)
	format, _ := params["fmt"].(string)
	if err := engine.ExportData(ctx, h, varName, path, format); err != nil {
		return "", err
	}
	return fmt.Sprintf("Variable %q exported to %s", varName, path), nil
}

func handleLoadMAT(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
	path := params["path"].(string)
	varName, _ := params["var"].(string)
	if err := engine.LoadMAT(ctx, h, path, varName); err != nil {
		return "", err
	}
	return fmt.Sprintf("MAT file loaded from %s", path), nil
}

func matSaver(artifacts store.Store) dispatch.Handler {
	return func(ctx context.Context, h engine.Handle, params map[string]any) (string, error) {
		path := params["path"].(string)
		variables, _ := params["variables"].([]string)

		saved, err := h.SaveArtifact(ctx, engine.ArtifactRequest{
			Kind:      engine.ArtifactWorkspace,
			Path:      path,
			Variables: variables,
		})
		if err != nil {
			return "", err
		}

		if artifacts != nil {
			_ = artifacts.CreateArtifact(ctx, &store.Artifact{
				Kind: string(engine.ArtifactWorkspace), Path: saved, Format: "mat",
			})
		}
		return fmt.Sprintf("Workspace saved to %s", saved), nil
	}
}
