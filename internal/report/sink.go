package report

import (
	"log/slog"

	"github.com/specialistvlad/burstbuild/internal/target"
)

// Sink receives build events.
type Sink interface {
	Plan(PlanEvent)
	Recipe(RecipeEvent)
	Target(TargetEvent)
	Summary(SummaryEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Plan(PlanEvent)       {}
func (Nop) Recipe(RecipeEvent)   {}
func (Nop) Target(TargetEvent)   {}
func (Nop) Summary(SummaryEvent) {}

type multi []Sink

// Multi fans events out to every non-nil sink, in order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) Plan(e PlanEvent) {
	for _, s := range m {
		s.Plan(e)
	}
}

func (m multi) Recipe(e RecipeEvent) {
	for _, s := range m {
		s.Recipe(e)
	}
}

func (m multi) Target(e TargetEvent) {
	for _, s := range m {
		s.Target(e)
	}
}

func (m multi) Summary(e SummaryEvent) {
	for _, s := range m {
		s.Summary(e)
	}
}

// Funcs adapts plain callbacks to a Sink. Nil callbacks are skipped.
type Funcs struct {
	OnPlan          func(PlanEvent)
	OnRecipeOutcome func(RecipeEvent)
	OnTargetStatus  func(TargetEvent)
	OnSummary       func(SummaryEvent)
}

func (f Funcs) Plan(e PlanEvent) {
	if f.OnPlan != nil {
		f.OnPlan(e)
	}
}

func (f Funcs) Recipe(e RecipeEvent) {
	if f.OnRecipeOutcome != nil {
		f.OnRecipeOutcome(e)
	}
}

func (f Funcs) Target(e TargetEvent) {
	if f.OnTargetStatus != nil {
		f.OnTargetStatus(e)
	}
}

func (f Funcs) Summary(e SummaryEvent) {
	if f.OnSummary != nil {
		f.OnSummary(e)
	}
}

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Plan(e PlanEvent) {
	l.logger.Info("Build plan computed.", "roots", e.Roots, "found", e.Found, "stale", e.Stale, "current", e.Current)
}

func (l *LogSink) Recipe(e RecipeEvent) {
	attrs := []any{
		"target", e.Target,
		"recipe", e.Recipe,
		"outcome", e.Outcome.String(),
		"duration", e.Duration(),
	}
	if e.Outcome == OutcomeSucceeded {
		l.logger.Debug("Recipe finished.", append(attrs, "dry_run", e.DryRun)...)
		return
	}
	l.logger.Error("Recipe failed.", append(attrs,
		"exit_code", e.ExitCode,
		"signal", e.Signal,
		"command", e.Command,
		"stderr", string(e.Stderr),
	)...)
}

func (l *LogSink) Target(e TargetEvent) {
	switch {
	case e.Status == target.StatusSkipped:
		l.logger.Warn("Skipping target due to upstream failure.", "target", e.Target, "reason", e.Reason)
	case e.Failed:
		l.logger.Error("Target failed.", "target", e.Target, "status", e.Status.String(), "reason", e.Reason)
	default:
		l.logger.Debug("Target finished.", "target", e.Target, "status", e.Status.String())
	}
}

func (l *LogSink) Summary(e SummaryEvent) {
	l.logger.Info("🏁 Build finished.", "made", e.Made, "failed", e.Failed, "skipped", e.Skipped, "up_to_date", e.UpToDate, "duration", e.Duration)
}
