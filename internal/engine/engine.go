// ABOUTME: Core contracts for talking to a MATLAB computation engine.
// ABOUTME: Defines the Handle call surface and the Registry that produces handles.

package engine

import (
	"context"
	"errors"
)

// ErrVariableNotFound indicates the requested workspace variable does not exist.
var ErrVariableNotFound = errors.New("variable not found")

// ErrHandleClosed indicates the handle's underlying connection has been closed.
var ErrHandleClosed = errors.New("engine handle closed")

// ExecResult holds the outcome of evaluating MATLAB code.
// ErrorText carries MATLAB-level errors (syntax errors, runtime errors);
// transport-level failures are returned as Go errors instead.
type ExecResult struct {
	Output    string
	ErrorText string
}

// Variable describes one workspace variable.
type Variable struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Size  []int  `json:"size"`
}

// ArtifactKind selects what SaveArtifact persists.
type ArtifactKind string

const (
	// ArtifactFigure saves a figure window to an image or .fig file.
	ArtifactFigure ArtifactKind = "figure"
	// ArtifactWorkspace saves workspace variables to a MAT file.
	ArtifactWorkspace ArtifactKind = "workspace"
)

// ArtifactRequest describes a SaveArtifact call.
type ArtifactRequest struct {
	Kind      ArtifactKind
	Path      string   // output path; auto-generated in the temp dir when empty
	Format    string   // figure format: png, jpg, svg, pdf, fig
	DPI       int      // raster DPI for figure formats; 0 means default
	Figure    int      // figure number; 0 means current figure
	Variables []string // workspace variables for ArtifactWorkspace; empty means all
}

// Handle is one exclusive connection to a running MATLAB engine instance.
//
// Every method may block for the duration of the underlying computation and
// may fault. The context is honored only at call boundaries; an in-flight
// engine call cannot be interrupted.
type Handle interface {
	ExecuteCode(ctx context.Context, code string) (ExecResult, error)
	GetVariable(ctx context.Context, name string) (string, error)
	SetVariable(ctx context.Context, name string, value any) error
	ListVariables(ctx context.Context) ([]Variable, error)
	SaveArtifact(ctx context.Context, req ArtifactRequest) (string, error)
	QueryVersion(ctx context.Context) (string, error)
	ListToolboxes(ctx context.Context) ([]string, error)
	LookupDocs(ctx context.Context, name, mode string) (string, error)
	Close() error
}

// Registry enumerates discoverable shared MATLAB instances and produces
// handles bound to them, or starts fresh local instances.
type Registry interface {
	// EnumerateShared lists the names of instances that have opted into
	// discovery. An empty list is a valid, non-error result.
	EnumerateShared() ([]string, error)
	// BindShared connects to the named shared instance.
	BindShared(ctx context.Context, name string) (Handle, error)
	// CreateLocal starts a new local engine process and connects to it.
	CreateLocal(ctx context.Context) (Handle, error)
}
