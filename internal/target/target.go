package target

import (
	"slices"
	"time"
)

// Recipe is a command template attached to the target it produces.
type Recipe struct {
	// Name identifies the action, e.g. "cc.compile".
	Name string
	// Command is an HCL template rendered against the target's variables.
	Command string
	// Bind lists the variables exported into the command's environment.
	Bind  []string
	Flags RecipeFlags
}

// Target is the registry record for one named target.
type Target struct {
	Name string

	// Location is the bound path. Explicit is set when the front end fixed it
	// through BindTarget, in which case the binder keeps it along with
	// ExplicitExists, the existence declared for it.
	Location       string
	Explicit       bool
	ExplicitExists bool
	Binding        BindingState
	ModTime        time.Time

	Flags   Flags
	Vars    Variables
	Recipes []Recipe

	Progress Progress
	Status   Status
}

// Clone returns a deep copy of t.
func (t *Target) Clone() Target {
	c := *t
	c.Vars = t.Vars.Clone()
	c.Recipes = make([]Recipe, len(t.Recipes))
	for i, r := range t.Recipes {
		r.Bind = slices.Clone(r.Bind)
		c.Recipes[i] = r
	}
	return c
}
