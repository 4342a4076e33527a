package report

import "sync"

// Recorder keeps every event in memory. It is used by tests and by callers
// that inspect a build after the fact.
type Recorder struct {
	mu        sync.Mutex
	plans     []PlanEvent
	recipes   []RecipeEvent
	targets   []TargetEvent
	summaries []SummaryEvent
}

func (r *Recorder) Plan(e PlanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, e)
}

func (r *Recorder) Recipe(e RecipeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes = append(r.recipes, e)
}

func (r *Recorder) Target(e TargetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, e)
}

func (r *Recorder) Summary(e SummaryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, e)
}

// Plans returns a copy of the recorded plan events.
func (r *Recorder) Plans() []PlanEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PlanEvent(nil), r.plans...)
}

// Recipes returns a copy of the recorded recipe events.
func (r *Recorder) Recipes() []RecipeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecipeEvent(nil), r.recipes...)
}

// Targets returns a copy of the recorded target events.
func (r *Recorder) Targets() []TargetEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TargetEvent(nil), r.targets...)
}

// Summaries returns a copy of the recorded summary events.
func (r *Recorder) Summaries() []SummaryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SummaryEvent(nil), r.summaries...)
}

// RecipeTargets lists the targets of the recorded recipe events in order.
func (r *Recorder) RecipeTargets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.recipes))
	for i, e := range r.recipes {
		out[i] = e.Target
	}
	return out
}

// StatusOf returns the last status recorded for name.
func (r *Recorder) StatusOf(name string) (TargetEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.targets) - 1; i >= 0; i-- {
		if r.targets[i].Target == name {
			return r.targets[i], true
		}
	}
	return TargetEvent{}, false
}
