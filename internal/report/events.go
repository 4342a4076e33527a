package report

import (
	"time"

	"github.com/specialistvlad/burstbuild/internal/target"
)

// Outcome is the result of running one recipe.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	// OutcomeFailed covers a non-zero exit status or death by signal.
	OutcomeFailed
	OutcomeTimedOut
	// OutcomeSpawnFailed means the command could not be started at all.
	OutcomeSpawnFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeSpawnFailed:
		return "spawn-failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// PlanEvent describes the plan computed for an update.
type PlanEvent struct {
	Roots   []string
	Found   int
	Stale   int
	Current int
}

// RecipeEvent is emitted once per recipe run.
type RecipeEvent struct {
	Target   string
	Recipe   string
	Command  string
	Outcome  Outcome
	ExitCode int
	Signal   string
	Start    time.Time
	End      time.Time
	Stdout   []byte
	Stderr   []byte
	Quiet    bool
	DryRun   bool
}

// Duration is the wall-clock time the recipe took.
func (e RecipeEvent) Duration() time.Duration { return e.End.Sub(e.Start) }

// TargetEvent is emitted when a target reaches a final status.
type TargetEvent struct {
	Target string
	Status target.Status
	// Failed is set when the target or one of its dependencies failed.
	Failed bool
	// Reason explains failed and skipped statuses.
	Reason string
}

// SummaryEvent closes an update.
type SummaryEvent struct {
	Made     int
	Failed   int
	Skipped  int
	UpToDate int
	Duration time.Duration
}
