// ABOUTME: JSON Schema generation for advertised tools.
// ABOUTME: Multi-op tools collapse into one schema with an op discriminator enum.

package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/2389/matlab-gateway/internal/dispatch"
)

// toolSchemas builds one MCPToolInfo per advertised tool name. Operations
// sharing a tool are merged: the op field becomes an enum over the enabled
// ops, and a parameter is required only if every enabled op requires it.
func toolSchemas(descs []*dispatch.Descriptor) ([]MCPToolInfo, error) {
	byTool := make(map[string][]*dispatch.Descriptor)
	var order []string
	for _, d := range descs {
		if _, seen := byTool[d.Tool]; !seen {
			order = append(order, d.Tool)
		}
		byTool[d.Tool] = append(byTool[d.Tool], d)
	}

	tools := make([]MCPToolInfo, 0, len(order))
	for _, name := range order {
		info, err := mergedSchema(name, byTool[name])
		if err != nil {
			return nil, fmt.Errorf("building schema for %q: %w", name, err)
		}
		tools = append(tools, info)
	}
	return tools, nil
}

func mergedSchema(tool string, ops []*dispatch.Descriptor) (MCPToolInfo, error) {
	properties := map[string]any{}
	required := []string{}

	if len(ops) > 1 || ops[0].Op != "" {
		enum := make([]string, len(ops))
		hasDefault := false
		defaultOp := ""
		for i, d := range ops {
			enum[i] = d.Op
			if d.DefaultOp {
				hasDefault = true
				defaultOp = d.Op
			}
		}
		opProp := map[string]any{
			"type":        "string",
			"enum":        enum,
			"description": "Operation to perform",
		}
		if hasDefault {
			opProp["default"] = defaultOp
		} else {
			required = append(required, "op")
		}
		properties["op"] = opProp
	}

	// A parameter is required at the tool level only when every op requires
	// it; anything else is optional and validated per-op at dispatch.
	requiredCount := map[string]int{}
	for _, d := range ops {
		for _, p := range d.Required {
			requiredCount[p.Name]++
			addProperty(properties, p)
		}
		for _, p := range d.Optional {
			addProperty(properties, p)
		}
	}
	for _, d := range ops {
		for _, p := range d.Required {
			if requiredCount[p.Name] == len(ops) && !contains(required, p.Name) {
				required = append(required, p.Name)
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return MCPToolInfo{}, err
	}

	return MCPToolInfo{
		Name:        tool,
		Description: toolDescription(ops),
		InputSchema: raw,
	}, nil
}

// toolDescription prefers the default op's description and falls back to the
// first registered op.
func toolDescription(ops []*dispatch.Descriptor) string {
	for _, d := range ops {
		if d.DefaultOp {
			return d.Description
		}
	}
	return ops[0].Description
}

func addProperty(properties map[string]any, p dispatch.Param) {
	if _, exists := properties[p.Name]; exists {
		return
	}
	prop := map[string]any{"description": p.Description}
	switch p.Type {
	case dispatch.TypeString:
		prop["type"] = "string"
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
	case dispatch.TypeInt:
		prop["type"] = "integer"
	case dispatch.TypeFloat:
		prop["type"] = "number"
	case dispatch.TypeBool:
		prop["type"] = "boolean"
	case dispatch.TypeStringList:
		prop["type"] = "array"
		prop["items"] = map[string]any{"type": "string"}
	case dispatch.TypeIntList:
		prop["type"] = "array"
		prop["items"] = map[string]any{"type": "integer"}
	case dispatch.TypeAny:
		// no type constraint
	}
	if p.Default != nil {
		prop["default"] = p.Default
	}
	properties[p.Name] = prop
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
