package target

// BindingState records what the binder found for a target.
type BindingState int

const (
	// BindingUnbound means the target has not been bound, or is not a file.
	BindingUnbound BindingState = iota
	// BindingExists means the bound location exists.
	BindingExists
	// BindingMissing means the bound location does not exist.
	BindingMissing
)

func (b BindingState) String() string {
	switch b {
	case BindingExists:
		return "exists"
	case BindingMissing:
		return "missing"
	default:
		return "unbound"
	}
}

// Progress is how far an update has carried a target. It only moves forward
// within one update.
type Progress int

const (
	ProgressInit Progress = iota
	// ProgressLaunched means the target is part of a running update and its
	// dependencies are being processed. New dependencies are still accepted.
	ProgressLaunched
	// ProgressBound means the target's plan is committed.
	ProgressBound
	ProgressRunning
	ProgressDone
)

func (p Progress) String() string {
	switch p {
	case ProgressLaunched:
		return "launched"
	case ProgressBound:
		return "bound"
	case ProgressRunning:
		return "running"
	case ProgressDone:
		return "done"
	default:
		return "init"
	}
}

// Status is the build outcome of a target.
type Status int

const (
	StatusNotStarted Status = iota
	StatusBuilding
	StatusMade
	StatusFailed
	StatusSkipped
	// StatusUpToDate marks a target that needed no work.
	StatusUpToDate
)

func (s Status) String() string {
	switch s {
	case StatusBuilding:
		return "building"
	case StatusMade:
		return "made"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusUpToDate:
		return "up-to-date"
	default:
		return "not-started"
	}
}

// Terminal reports whether s is a final outcome.
func (s Status) Terminal() bool {
	return s == StatusMade || s == StatusFailed || s == StatusSkipped || s == StatusUpToDate
}

// Succeeded reports whether dependants may build on top of s.
func (s Status) Succeeded() bool {
	return s == StatusMade || s == StatusUpToDate
}
