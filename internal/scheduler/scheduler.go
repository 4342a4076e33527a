package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/burstbuild/internal/binder"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/executor"
	"github.com/specialistvlad/burstbuild/internal/graph"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// Runner executes one recipe job.
type Runner interface {
	Run(ctx context.Context, job executor.Job) executor.Result
}

// Config wires a Scheduler to its collaborators.
type Config struct {
	Graph  *graph.Graph
	Binder *binder.Binder
	Sink   report.Sink
	Source RecipeSource
	// Exec is the base executor configuration; Timeout and NoExec are
	// taken from the Options of each update.
	Exec executor.Options
	// NewRunner builds the runner of an update. Defaults to executor.New.
	NewRunner func(executor.Options, report.Sink) Runner
}

// Scheduler runs updates over one graph. Only one update runs at a time.
type Scheduler struct {
	cfg     Config
	running atomic.Bool
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Sink == nil {
		cfg.Sink = report.Nop{}
	}
	if cfg.NewRunner == nil {
		cfg.NewRunner = func(o executor.Options, s report.Sink) Runner { return executor.New(o, s) }
	}
	return &Scheduler{cfg: cfg}
}

// Update brings the named targets up to date. Execution failures are
// reported through the sink and the summary, never as an error; the error
// is reserved for misuse such as overlapping updates.
func (s *Scheduler) Update(ctx context.Context, names []string, opts Options) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Summary{}, ErrUpdateRunning
	}
	defer s.running.Store(false)

	execOpts := s.cfg.Exec
	execOpts.Timeout = opts.Timeout
	execOpts.NoExec = opts.NoExec

	r := &run{
		cfg:    s.cfg,
		opts:   opts,
		ctx:    ctx,
		logger: ctxlog.FromContext(ctx),
		runner: s.cfg.NewRunner(execOpts, s.cfg.Sink),
		nodes:  make(map[graph.Handle]*node),
		done:   make(chan completion, opts.jobs()),
		lateCh: make(chan struct{}, 1),
		start:  time.Now(),
	}

	s.cfg.Graph.SetListener(r)
	defer s.cfg.Graph.SetListener(nil)

	return r.execute(names), nil
}

// node is the per-update state of one target. It is only touched by the
// coordinating goroutine.
type node struct {
	h    graph.Handle
	name string

	// waiting holds dependencies that are not final yet.
	waiting map[graph.Handle]struct{}
	// roots[i] is set when requested root i reaches this node.
	roots []bool

	status   target.Status
	started  bool
	inFlight bool
	rebuilt  bool
	location string
	modTime  time.Time
	flags    target.Flags

	jobs    []executor.Job
	ignore  []bool
	nextJob int
}

type completion struct {
	h      graph.Handle
	result executor.Result
}

type lateDecl struct {
	h    graph.Handle
	deps []graph.Handle
}

type run struct {
	cfg    Config
	opts   Options
	ctx    context.Context
	logger *slog.Logger
	runner Runner

	roots []graph.Handle
	nodes map[graph.Handle]*node
	seq   []graph.Handle
	// ready holds targets whose dependencies are final, in arrival order.
	ready []graph.Handle
	// queue holds recipe jobs waiting for a free slot.
	queue []graph.Handle

	inFlight int
	done     chan completion

	lateMu sync.Mutex
	late   []lateDecl
	lateCh chan struct{}

	doomed   []bool
	failed   bool
	stopping bool
	canceled bool

	summary Summary
	start   time.Time
}

// DependenciesAdded implements graph.Listener. It runs on the declaring
// goroutine with the graph locked, so it only queues the declaration.
func (r *run) DependenciesAdded(h graph.Handle, deps []graph.Handle) {
	r.lateMu.Lock()
	r.late = append(r.late, lateDecl{h: h, deps: deps})
	r.lateMu.Unlock()
	select {
	case r.lateCh <- struct{}{}:
	default:
	}
}

func (r *run) execute(names []string) Summary {
	r.logger.Debug("Update started.", "targets", names, "jobs", r.opts.jobs())
	r.plan(names)

	ctxDone := r.ctx.Done()
	for {
		r.drainLate()
		r.processReady()
		r.dispatch()

		if r.inFlight == 0 && len(r.ready) == 0 && len(r.queue) == 0 && !r.hasLate() {
			break
		}

		select {
		case c := <-r.done:
			r.inFlight--
			r.complete(c)
		case <-r.lateCh:
		case <-ctxDone:
			ctxDone = nil
			r.cancel()
		}
	}

	r.finishStragglers()
	for _, h := range r.roots {
		if n := r.nodes[h]; !n.status.Succeeded() {
			r.summary.Unsatisfied++
		}
	}
	r.summary.Duration = time.Since(r.start)
	r.summary.Canceled = r.canceled
	r.cfg.Sink.Summary(report.SummaryEvent{
		Made:     r.summary.Made,
		Failed:   r.summary.Failed,
		Skipped:  r.summary.Skipped,
		UpToDate: r.summary.UpToDate,
		Duration: r.summary.Duration,
	})
	r.logger.Debug("Update finished.", "made", r.summary.Made, "failed", r.summary.Failed, "skipped", r.summary.Skipped, "unsatisfied", r.summary.Unsatisfied)
	return r.summary
}

func (r *run) hasLate() bool {
	r.lateMu.Lock()
	defer r.lateMu.Unlock()
	return len(r.late) > 0
}

// finishStragglers skips anything left unfinished. Acyclicity makes this
// unreachable unless the update was interrupted.
func (r *run) finishStragglers() {
	for _, h := range r.order() {
		n := r.nodes[h]
		if !n.status.Terminal() {
			r.setFinal(n, target.StatusSkipped, "build stopped")
		}
	}
}
