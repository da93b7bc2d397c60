// ABOUTME: Higher-level MATLAB operations composed from ExecuteCode.
// ABOUTME: Workspace clearing, figure management, data import/export, toolbox checks.

package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ClearWorkspace clears the named variables, or the whole workspace when
// none are given.
func ClearWorkspace(ctx context.Context, h Handle, vars ...string) error {
	code := "clear;"
	if len(vars) > 0 {
		parts := make([]string, len(vars))
		for i, v := range vars {
			parts[i] = "clear " + v + ";"
		}
		code = strings.Join(parts, " ")
	}
	return runCode(ctx, h, code, "clearing workspace")
}

// CloseFigures closes the listed figure numbers, or all figures when the
// list is empty.
func CloseFigures(ctx context.Context, h Handle, figures []int) error {
	code := "close all;"
	if len(figures) > 0 {
		parts := make([]string, len(figures))
		for i, n := range figures {
			parts[i] = fmt.Sprintf("close(%d);", n)
		}
		code = strings.Join(parts, " ")
	}
	return runCode(ctx, h, code, "closing figures")
}

// ImportData reads a data file into a workspace variable named after the
// file. Returns the variable name.
func ImportData(ctx context.Context, h Handle, path, format string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	varName := "imported_" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	varName = strings.NewReplacer("-", "_", " ", "_").Replace(varName)

	var code string
	switch format {
	case "csv", "txt", "xlsx":
		code = fmt.Sprintf("%s = readtable(%s);", varName, Quote(path))
	case "json":
		code = fmt.Sprintf("%s = jsondecode(fileread(%s));", varName, Quote(path))
	default:
		return "", fmt.Errorf("unsupported import format %q", format)
	}

	if err := runCode(ctx, h, code, "importing data"); err != nil {
		return "", err
	}
	return varName, nil
}

// ExportData writes a workspace variable to a file.
func ExportData(ctx context.Context, h Handle, varName, path, format string) error {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	var code string
	switch format {
	case "csv", "txt", "xlsx":
		code = fmt.Sprintf("writetable(%s, %s);", varName, Quote(path))
	case "json":
		code = fmt.Sprintf(
			"fid = fopen(%s, 'w'); fprintf(fid, '%%s', jsonencode(%s)); fclose(fid);",
			Quote(path), varName)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return runCode(ctx, h, code, fmt.Sprintf("exporting %q", varName))
}

// LoadMAT loads a MAT file into the workspace, optionally a single variable.
func LoadMAT(ctx context.Context, h Handle, path, varName string) error {
	code := fmt.Sprintf("load(%s);", Quote(path))
	if varName != "" {
		code = fmt.Sprintf("load(%s, %s);", Quote(path), Quote(varName))
	}
	return runCode(ctx, h, code, "loading MAT file")
}

// CheckToolbox reports whether the named toolbox is installed, plus the
// engine's descriptive output.
func CheckToolbox(ctx context.Context, h Handle, name string) (bool, string, error) {
	code := fmt.Sprintf(
		"tb = ver(%s); if isempty(tb), fprintf('Toolbox not found: %%s\\n', %s); "+
			"else, fprintf('Toolbox available: %%s %%s\\n', tb.Name, tb.Version); end",
		Quote(name), Quote(name))
	res, err := h.ExecuteCode(ctx, code)
	if err != nil {
		return false, "", err
	}
	if res.ErrorText != "" {
		return false, "", fmt.Errorf("checking toolbox %q: %s", name, res.ErrorText)
	}
	installed := !strings.Contains(strings.ToLower(res.Output), "not found")
	return installed, strings.TrimSpace(res.Output), nil
}

func runCode(ctx context.Context, h Handle, code, action string) error {
	res, err := h.ExecuteCode(ctx, code)
	if err != nil {
		return err
	}
	if res.ErrorText != "" {
		return fmt.Errorf("%s: %s", action, res.ErrorText)
	}
	return nil
}
