package target

import "slices"

// VarMode selects how a variable assignment combines with an existing value.
type VarMode int

const (
	// VarSet replaces the current values.
	VarSet VarMode = iota
	// VarAppend extends the current values.
	VarAppend
)

// Variable is one named, ordered list of string values.
type Variable struct {
	Name   string
	Values []string
}

// Variables is an ordered set of bindings. The first assignment of a name
// fixes its position.
type Variables []Variable

// Get returns the values bound to name.
func (v Variables) Get(name string) ([]string, bool) {
	for _, b := range v {
		if b.Name == name {
			return b.Values, true
		}
	}
	return nil, false
}

// Apply returns v with name assigned according to mode.
func (v Variables) Apply(mode VarMode, name string, values []string) Variables {
	for i, b := range v {
		if b.Name != name {
			continue
		}
		if mode == VarAppend {
			v[i].Values = append(slices.Clone(b.Values), values...)
		} else {
			v[i].Values = slices.Clone(values)
		}
		return v
	}
	return append(v, Variable{Name: name, Values: slices.Clone(values)})
}

// Clone deep-copies v.
func (v Variables) Clone() Variables {
	if v == nil {
		return nil
	}
	out := make(Variables, len(v))
	for i, b := range v {
		out[i] = Variable{Name: b.Name, Values: slices.Clone(b.Values)}
	}
	return out
}

// Map flattens v into a map.
func (v Variables) Map() map[string][]string {
	out := make(map[string][]string, len(v))
	for _, b := range v {
		out[b.Name] = slices.Clone(b.Values)
	}
	return out
}
