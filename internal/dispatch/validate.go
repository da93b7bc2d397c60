// ABOUTME: Parameter validation against operation descriptors.
// ABOUTME: Rejects missing, extra, and mistyped parameters before any engine call.

package dispatch

import (
	"math"
)

// validateParams checks args against the descriptor and returns the merged
// parameter map with optional defaults applied. Validation failures name the
// offending field and happen before any engine side effect.
func validateParams(desc *Descriptor, args map[string]any) (map[string]any, error) {
	// Unknown extras are caller mistakes worth catching early.
	for name := range args {
		if _, ok := desc.paramByName(name); !ok {
			return nil, errInvalidParams(name, "unexpected parameter %q", name)
		}
	}

	params := make(map[string]any, len(desc.Required)+len(desc.Optional))

	for _, p := range desc.Required {
		raw, ok := args[p.Name]
		if !ok || raw == nil {
			return nil, errInvalidParams(p.Name, "missing required parameter %q", p.Name)
		}
		v, err := coerce(p, raw)
		if err != nil {
			return nil, err
		}
		params[p.Name] = v
	}

	for _, p := range desc.Optional {
		raw, ok := args[p.Name]
		if !ok || raw == nil {
			if p.Default != nil {
				params[p.Name] = p.Default
			}
			continue
		}
		v, err := coerce(p, raw)
		if err != nil {
			return nil, err
		}
		params[p.Name] = v
	}

	return params, nil
}

// coerce checks raw against the parameter's declared type. JSON decoding
// hands us float64 for every number, so integer params accept integral
// floats.
func coerce(p Param, raw any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, errInvalidParams(p.Name, "parameter %q must be a string", p.Name)
		}
		if len(p.Enum) > 0 {
			for _, allowed := range p.Enum {
				if s == allowed {
					return s, nil
				}
			}
			return nil, errInvalidParams(p.Name,
				"parameter %q must be one of %v, got %q", p.Name, p.Enum, s)
		}
		return s, nil

	case TypeInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, errInvalidParams(p.Name, "parameter %q must be an integer", p.Name)
			}
			return int(v), nil
		}
		return nil, errInvalidParams(p.Name, "parameter %q must be an integer", p.Name)

	case TypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, errInvalidParams(p.Name, "parameter %q must be a number", p.Name)

	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, errInvalidParams(p.Name, "parameter %q must be a boolean", p.Name)
		}
		return b, nil

	case TypeStringList:
		switch v := raw.(type) {
		case []string:
			return v, nil
		case []any:
			out := make([]string, len(v))
			for i, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, errInvalidParams(p.Name,
						"parameter %q must be a list of strings", p.Name)
				}
				out[i] = s
			}
			return out, nil
		}
		return nil, errInvalidParams(p.Name, "parameter %q must be a list of strings", p.Name)

	case TypeIntList:
		switch v := raw.(type) {
		case []int:
			return v, nil
		case []any:
			out := make([]int, len(v))
			for i, item := range v {
				f, ok := item.(float64)
				if !ok || f != math.Trunc(f) {
					return nil, errInvalidParams(p.Name,
						"parameter %q must be a list of integers", p.Name)
				}
				out[i] = int(f)
			}
			return out, nil
		case float64:
			// A bare number is accepted as a single-element list.
			if v != math.Trunc(v) {
				return nil, errInvalidParams(p.Name,
					"parameter %q must be a list of integers", p.Name)
			}
			return []int{int(v)}, nil
		}
		return nil, errInvalidParams(p.Name, "parameter %q must be a list of integers", p.Name)

	case TypeAny:
		return raw, nil
	}

	return nil, errInvalidParams(p.Name, "parameter %q has unsupported type %q", p.Name, p.Type)
}
