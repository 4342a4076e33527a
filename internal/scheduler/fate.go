package scheduler

import (
	"time"

	"github.com/specialistvlad/burstbuild/internal/target"
)

type depState struct {
	name    string
	rebuilt bool
	modTime time.Time
	flags   target.Flags
}

type fateInput struct {
	force   bool
	flags   target.Flags
	binding target.BindingState
	modTime time.Time
	deps    []depState
}

// isStale decides whether a target must be rebuilt and says why. A rebuilt
// dependency always makes the target stale, whatever the timestamps say.
func isStale(in fateInput) (bool, string) {
	switch {
	case in.binding == target.BindingMissing:
		return true, "missing"
	case in.flags.Has(target.FlagNoUpdate):
		return false, ""
	case in.force:
		return true, "forced"
	case in.flags.Has(target.FlagAlways):
		return true, "always"
	case in.binding == target.BindingUnbound:
		return true, "not a file"
	}
	for _, d := range in.deps {
		if d.rebuilt {
			return true, "dependency " + d.name + " rebuilt"
		}
	}
	for _, d := range in.deps {
		if d.flags.Has(target.FlagNoPropagate) {
			continue
		}
		if d.modTime.After(in.modTime) {
			return true, "dependency " + d.name + " is newer"
		}
	}
	return false, ""
}
