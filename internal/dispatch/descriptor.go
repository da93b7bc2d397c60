// ABOUTME: Static operation descriptors: parameter shapes, groups, op discriminators.
// ABOUTME: Descriptors are immutable after registration; one exists per (tool, op).

package dispatch

// ParamType tags the accepted JSON shape of a parameter.
type ParamType string

const (
	TypeString     ParamType = "string"
	TypeInt        ParamType = "integer"
	TypeFloat      ParamType = "number"
	TypeBool       ParamType = "boolean"
	TypeStringList ParamType = "string_list"
	TypeIntList    ParamType = "integer_list"
	// TypeAny accepts any JSON value (used for workspace set values).
	TypeAny ParamType = "any"
)

// Param describes one accepted parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Enum        []string // allowed values for string params, empty means any
	Default     any      // applied when an optional param is absent
}

// Descriptor is the static configuration entry for one operation.
type Descriptor struct {
	// Tool is the advertised tool name.
	Tool string
	// Op is the discriminator for multi-operation tools; empty for
	// single-operation tools.
	Op string
	// DefaultOp marks this op as the one assumed when the caller omits it.
	DefaultOp bool
	// Group names the capability gate group this operation belongs to.
	Group string
	// Description is the caller-facing summary for this operation.
	Description string

	Required []Param
	Optional []Param

	// Direct operations run without an engine handle: session management
	// and gate/classifier meta tools go through their owners directly.
	Direct bool
}

type opKey struct {
	tool string
	op   string
}

func (d *Descriptor) key() opKey {
	return opKey{tool: d.Tool, op: d.Op}
}

// paramByName finds a declared parameter, required or optional.
func (d *Descriptor) paramByName(name string) (Param, bool) {
	for _, p := range d.Required {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range d.Optional {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
