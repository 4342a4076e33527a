package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/burstbuild/internal/target"
)

var (
	// ErrBindingMissing marks a target that does not exist and that nothing
	// knows how to make.
	ErrBindingMissing = errors.New("don't know how to make target")
	// ErrUpdateRunning is returned when Update is called while another
	// update is in progress on the same scheduler.
	ErrUpdateRunning = errors.New("an update is already running")
)

// Options controls one update.
type Options struct {
	// Jobs is the maximum number of recipes running at once. Values below
	// one mean one.
	Jobs int
	// Timeout bounds each recipe. Zero means no limit.
	Timeout time.Duration
	// Force rebuilds every target in the closure.
	Force bool
	// KeepGoing builds every branch that does not depend on a failure.
	KeepGoing bool
	// QuitQuick stops dispatching as soon as a recipe fails.
	QuitQuick bool
	// NoExec reports recipes without running them.
	NoExec bool
}

func (o Options) jobs() int {
	if o.Jobs < 1 {
		return 1
	}
	return o.Jobs
}

// RecipeSource supplies extra variables for a recipe when its target is
// bound. Values it returns override the target's own variables.
type RecipeSource interface {
	RecipeVariables(ctx context.Context, targetName string, r target.Recipe) (map[string][]string, error)
}

// Summary aggregates the final statuses of an update.
type Summary struct {
	Made     int
	Failed   int
	Skipped  int
	UpToDate int
	// Unsatisfied counts requested targets that ended neither made nor up
	// to date.
	Unsatisfied int
	Canceled    bool
	Duration    time.Duration
}

// Status is zero when nothing failed, every requested target is made or up
// to date and the update was not canceled.
func (s Summary) Status() int {
	if s.Failed > 0 || s.Unsatisfied > 0 || s.Canceled {
		return 1
	}
	return 0
}
