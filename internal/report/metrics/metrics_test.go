package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
	"github.com/stretchr/testify/assert"
)

func TestSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(reg)

	start := time.Now()
	s.Plan(report.PlanEvent{Found: 4, Stale: 2})
	s.Recipe(report.RecipeEvent{Outcome: report.OutcomeSucceeded, Start: start, End: start.Add(50 * time.Millisecond)})
	s.Recipe(report.RecipeEvent{Outcome: report.OutcomeFailed, Start: start, End: start.Add(time.Second)})
	s.Recipe(report.RecipeEvent{Outcome: report.OutcomeSucceeded, DryRun: true})
	s.Target(report.TargetEvent{Status: target.StatusMade})
	s.Target(report.TargetEvent{Status: target.StatusMade})
	s.Target(report.TargetEvent{Status: target.StatusFailed})
	s.Summary(report.SummaryEvent{Made: 2, Failed: 1})
	s.Summary(report.SummaryEvent{Made: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(s.lastStale))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.targets.WithLabelValues(target.StatusMade.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.targets.WithLabelValues(target.StatusFailed.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.updates.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.updates.WithLabelValues("success")))
	assert.Equal(t, 2, testutil.CollectAndCount(s.recipeDuration))
}
