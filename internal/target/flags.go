package target

import (
	"fmt"
	"strings"
)

// Flags are traits OR-ed onto a target.
type Flags uint32

const (
	// FlagAlways rebuilds the target on every update.
	FlagAlways Flags = 1 << iota
	// FlagNoCare makes a missing target without a recipe acceptable.
	FlagNoCare
	// FlagNotFile marks a target that is not a file; it is never stat-ed.
	FlagNotFile
	// FlagNoUpdate builds the target only when it is missing.
	FlagNoUpdate
	// FlagNoPropagate hides the target's timestamp from its dependants.
	FlagNoPropagate
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagAlways, "always"},
	{FlagNoCare, "nocare"},
	{FlagNotFile, "notfile"},
	{FlagNoUpdate, "noupdate"},
	{FlagNoPropagate, "nopropagate"},
}

// Has reports whether every bit of x is set in f.
func (f Flags) Has(x Flags) bool { return f&x == x }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFlags converts flag names such as "always" or "notfile" into Flags.
// "touched" is accepted as an alias of "always".
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "touched" {
			name = "always"
		}
		found := false
		for _, fn := range flagNames {
			if fn.name == name {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown target flag %q", raw)
		}
	}
	return f, nil
}

// RecipeFlags modify how a recipe is run and reported.
type RecipeFlags uint32

const (
	// RecipeQuiet suppresses echoing the command on the console.
	RecipeQuiet RecipeFlags = 1 << iota
	// RecipeIgnore treats a failing command as a success.
	RecipeIgnore
)

// Has reports whether every bit of x is set in f.
func (f RecipeFlags) Has(x RecipeFlags) bool { return f&x == x }

// ParseRecipeFlags converts "quiet" and "ignore" into RecipeFlags.
func ParseRecipeFlags(names []string) (RecipeFlags, error) {
	var f RecipeFlags
	for _, raw := range names {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "quiet":
			f |= RecipeQuiet
		case "ignore":
			f |= RecipeIgnore
		default:
			return 0, fmt.Errorf("unknown recipe flag %q", raw)
		}
	}
	return f, nil
}
