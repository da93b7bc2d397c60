// ABOUTME: Tests for JSON Schema generation over merged multi-op tools.

package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/matlab-gateway/internal/dispatch"
)

type schemaDoc struct {
	Type       string                    `json:"type"`
	Properties map[string]map[string]any `json:"properties"`
	Required   []string                  `json:"required"`
}

func decodeSchema(t *testing.T, info MCPToolInfo) schemaDoc {
	t.Helper()
	var doc schemaDoc
	require.NoError(t, json.Unmarshal(info.InputSchema, &doc))
	return doc
}

func TestSingleOpToolHasNoOpProperty(t *testing.T) {
	tools, err := toolSchemas([]*dispatch.Descriptor{
		{
			Tool:        "execute_matlab",
			Group:       "essentials",
			Description: "Execute MATLAB code",
			Required:    []dispatch.Param{{Name: "code", Type: dispatch.TypeString}},
		},
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)

	doc := decodeSchema(t, tools[0])
	assert.NotContains(t, doc.Properties, "op")
	assert.Equal(t, []string{"code"}, doc.Required)
	assert.Equal(t, "string", doc.Properties["code"]["type"])
}

func TestMultiOpToolMergesOpsIntoEnum(t *testing.T) {
	tools, err := toolSchemas([]*dispatch.Descriptor{
		{Tool: "workspace", Op: "list", DefaultOp: true, Description: "List variables"},
		{
			Tool: "workspace", Op: "get",
			Required: []dispatch.Param{{Name: "var", Type: dispatch.TypeString}},
		},
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)

	doc := decodeSchema(t, tools[0])
	op := doc.Properties["op"]
	require.NotNil(t, op)
	assert.ElementsMatch(t, []any{"list", "get"}, op["enum"])
	assert.Equal(t, "list", op["default"])

	// op has a default, and var is only required by one of two ops.
	assert.NotContains(t, doc.Required, "op")
	assert.NotContains(t, doc.Required, "var")
	assert.Equal(t, "List variables", tools[0].Description)
}

func TestOpRequiredWithoutDefault(t *testing.T) {
	tools, err := toolSchemas([]*dispatch.Descriptor{
		{Tool: "figure", Op: "save"},
		{Tool: "figure", Op: "close"},
	})
	require.NoError(t, err)

	doc := decodeSchema(t, tools[0])
	assert.Contains(t, doc.Required, "op")
}

func TestParamRequiredByEveryOpStaysRequired(t *testing.T) {
	path := dispatch.Param{Name: "path", Type: dispatch.TypeString}
	tools, err := toolSchemas([]*dispatch.Descriptor{
		{Tool: "data", Op: "import", DefaultOp: true, Required: []dispatch.Param{path}},
		{Tool: "data", Op: "export", Required: []dispatch.Param{path}},
	})
	require.NoError(t, err)

	doc := decodeSchema(t, tools[0])
	assert.Contains(t, doc.Required, "path")
}

func TestParamTypeMapping(t *testing.T) {
	tools, err := toolSchemas([]*dispatch.Descriptor{
		{
			Tool: "kitchen",
			Optional: []dispatch.Param{
				{Name: "fmt", Type: dispatch.TypeString, Enum: []string{"png", "svg"}, Default: "png"},
				{Name: "dpi", Type: dispatch.TypeInt, Default: 150},
				{Name: "figs", Type: dispatch.TypeIntList},
				{Name: "names", Type: dispatch.TypeStringList},
				{Name: "value", Type: dispatch.TypeAny},
			},
		},
	})
	require.NoError(t, err)

	doc := decodeSchema(t, tools[0])
	assert.Equal(t, []any{"png", "svg"}, doc.Properties["fmt"]["enum"])
	assert.Equal(t, "png", doc.Properties["fmt"]["default"])
	assert.Equal(t, "integer", doc.Properties["dpi"]["type"])
	assert.Equal(t, "array", doc.Properties["figs"]["type"])
	assert.Equal(t, map[string]any{"type": "integer"}, doc.Properties["figs"]["items"])
	assert.Equal(t, map[string]any{"type": "string"}, doc.Properties["names"]["items"])
	assert.NotContains(t, doc.Properties["value"], "type")
}

func TestToolOrderIsStable(t *testing.T) {
	tools, err := toolSchemas([]*dispatch.Descriptor{
		{Tool: "b", Op: "one"},
		{Tool: "a"},
		{Tool: "b", Op: "two"},
	})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "b", tools[0].Name)
	assert.Equal(t, "a", tools[1].Name)
}
