package app

import (
	"sync"

	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// Status is the snapshot served on /status.
type Status struct {
	Running  bool `json:"running"`
	Found    int  `json:"found"`
	Stale    int  `json:"stale"`
	Made     int  `json:"made"`
	Failed   int  `json:"failed"`
	Skipped  int  `json:"skipped"`
	UpToDate int  `json:"up_to_date"`
}

// progress tracks the current update for the health endpoints.
type progress struct {
	mu sync.Mutex
	s  Status
}

func (p *progress) sink() report.Sink {
	return report.Funcs{
		OnPlan: func(e report.PlanEvent) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.s = Status{Running: true, Found: e.Found, Stale: e.Stale}
		},
		OnTargetStatus: func(e report.TargetEvent) {
			p.mu.Lock()
			defer p.mu.Unlock()
			switch e.Status {
			case target.StatusMade:
				p.s.Made++
			case target.StatusFailed:
				p.s.Failed++
			case target.StatusSkipped:
				p.s.Skipped++
			case target.StatusUpToDate:
				p.s.UpToDate++
			}
		},
		OnSummary: func(report.SummaryEvent) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.s.Running = false
		},
	}
}

func (p *progress) snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}
