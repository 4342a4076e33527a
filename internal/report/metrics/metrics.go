// Package metrics exposes build events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/burstbuild/internal/report"
)

const namespace = "burstbuild"

// Sink is a report.Sink that records build events in Prometheus collectors.
type Sink struct {
	recipeDuration *prometheus.HistogramVec
	targets        *prometheus.CounterVec
	updates        *prometheus.CounterVec
	lastStale      prometheus.Gauge
}

var _ report.Sink = (*Sink)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		recipeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "recipe",
				Name:      "duration_seconds",
				Help:      "Recipe run time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~2.7min
			},
			[]string{"outcome"},
		),
		targets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "target",
				Name:      "total",
				Help:      "Targets by final status.",
			},
			[]string{"status"},
		),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Finished updates by result.",
			},
			[]string{"result"}, // "success" or "failure"
		),
		lastStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_stale_targets",
			Help:      "Targets the last plan predicted to rebuild.",
		}),
	}
	reg.MustRegister(s.recipeDuration, s.targets, s.updates, s.lastStale)
	return s
}

func (s *Sink) Plan(e report.PlanEvent) {
	s.lastStale.Set(float64(e.Stale))
}

func (s *Sink) Recipe(e report.RecipeEvent) {
	if e.DryRun {
		return
	}
	s.recipeDuration.WithLabelValues(e.Outcome.String()).Observe(e.Duration().Seconds())
}

func (s *Sink) Target(e report.TargetEvent) {
	s.targets.WithLabelValues(e.Status.String()).Inc()
}

func (s *Sink) Summary(e report.SummaryEvent) {
	result := "success"
	if e.Failed > 0 || e.Skipped > 0 {
		result = "failure"
	}
	s.updates.WithLabelValues(result).Inc()
}
