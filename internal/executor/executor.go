package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/report"
)

var (
	ErrActionFailed   = errors.New("action failed")
	ErrActionTimedOut = errors.New("action timed out")
	ErrSpawnFailed    = errors.New("could not start action")
	ErrCanceled       = errors.New("action canceled")
)

// DefaultGrace is how long a terminated process group gets before it is killed.
const DefaultGrace = 2 * time.Second

// Options configures a Runner.
type Options struct {
	// Timeout bounds every action. Zero means no limit.
	Timeout time.Duration
	// Grace is the delay between the terminate and kill signals.
	Grace time.Duration
	// NoExec reports commands without running them.
	NoExec bool
	// Shell is the interpreter prefix; the command is appended as the last
	// argument. Defaults to sh -c (cmd /C on Windows).
	Shell []string
	// Dir is the working directory of every action.
	Dir string
	// Env is appended to the process environment of every action.
	Env []string
}

// Job is one command to run on behalf of a target.
type Job struct {
	Target  string
	Recipe  string
	Command string
	// Env is appended after Options.Env.
	Env   []string
	Quiet bool
}

// Result is the outcome of a Job.
type Result struct {
	Job      Job
	Outcome  report.Outcome
	ExitCode int
	Signal   string
	Stdout   []byte
	Stderr   []byte
	Start    time.Time
	End      time.Time
	DryRun   bool
	cause    error
	signo    int
}

// Succeeded reports whether the command exited with status zero.
func (r Result) Succeeded() bool { return r.Outcome == report.OutcomeSucceeded }

// Status is the shell-style exit status: the exit code, 128 plus the signal
// number for a process killed by a signal, and 1 when the command never
// produced a status of its own.
func (r Result) Status() int {
	switch {
	case r.Outcome == report.OutcomeSucceeded:
		return 0
	case r.signo > 0:
		return 128 + r.signo
	case r.ExitCode > 0:
		return r.ExitCode
	default:
		return 1
	}
}

// Duration is the wall-clock time of the run.
func (r Result) Duration() time.Duration { return r.End.Sub(r.Start) }

// Err returns nil on success and an error wrapping one of the package
// sentinels otherwise.
func (r Result) Err() error {
	switch r.Outcome {
	case report.OutcomeSucceeded:
		return nil
	case report.OutcomeTimedOut:
		return fmt.Errorf("%s %s: %w", r.Job.Recipe, r.Job.Target, ErrActionTimedOut)
	case report.OutcomeSpawnFailed:
		return fmt.Errorf("%s %s: %w: %v", r.Job.Recipe, r.Job.Target, ErrSpawnFailed, r.cause)
	case report.OutcomeCanceled:
		return fmt.Errorf("%s %s: %w", r.Job.Recipe, r.Job.Target, ErrCanceled)
	default:
		if r.Signal != "" {
			return fmt.Errorf("%s %s: %w: signal %s", r.Job.Recipe, r.Job.Target, ErrActionFailed, r.Signal)
		}
		return fmt.Errorf("%s %s: %w: exit status %d", r.Job.Recipe, r.Job.Target, ErrActionFailed, r.ExitCode)
	}
}

// Event converts the result into a report event.
func (r Result) Event() report.RecipeEvent {
	return report.RecipeEvent{
		Target:   r.Job.Target,
		Recipe:   r.Job.Recipe,
		Command:  r.Job.Command,
		Outcome:  r.Outcome,
		ExitCode: r.ExitCode,
		Signal:   r.Signal,
		Start:    r.Start,
		End:      r.End,
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
		Quiet:    r.Job.Quiet,
		DryRun:   r.DryRun,
	}
}

// Runner executes jobs. It is safe for concurrent use.
type Runner struct {
	opts Options
	sink report.Sink
}

// New creates a Runner reporting to sink.
func New(opts Options, sink report.Sink) *Runner {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if len(opts.Shell) == 0 {
		opts.Shell = defaultShell()
	}
	if sink == nil {
		sink = report.Nop{}
	}
	return &Runner{opts: opts, sink: sink}
}

// LoadEnvFile reads KEY=VALUE pairs from a dotenv file.
func LoadEnvFile(path string) ([]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	env := make([]string, 0, len(values))
	for k, v := range values {
		env = append(env, k+"="+v)
	}
	return env, nil
}

// Run executes job, emits a recipe event and returns the result.
func (r *Runner) Run(ctx context.Context, job Job) Result {
	logger := ctxlog.FromContext(ctx).With("target", job.Target, "recipe", job.Recipe)

	var res Result
	if r.opts.NoExec {
		now := time.Now()
		res = Result{Job: job, Outcome: report.OutcomeSucceeded, Start: now, End: now, DryRun: true}
	} else {
		logger.Debug("Starting action.", "command", job.Command)
		res = r.run(ctx, job)
	}

	if res.Succeeded() {
		logger.Debug("Action finished.", "duration", res.Duration())
	} else {
		logger.Debug("Action did not succeed.", "outcome", res.Outcome.String(), "exit_code", res.ExitCode)
	}
	r.sink.Recipe(res.Event())
	return res
}

func (r *Runner) run(ctx context.Context, job Job) Result {
	res := Result{Job: job}

	runCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.opts.Shell[1:]...), job.Command)
	cmd := exec.Command(r.opts.Shell[0], args...)
	cmd.Dir = r.opts.Dir
	cmd.Env = append(append(os.Environ(), r.opts.Env...), job.Env...)
	cmd.WaitDelay = r.opts.Grace
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res.Start = time.Now()
	if err := cmd.Start(); err != nil {
		res.End = time.Now()
		res.Outcome = report.OutcomeSpawnFailed
		res.ExitCode = -1
		res.cause = err
		return res
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	interrupted := false
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		interrupted = true
		terminate(cmd)
		select {
		case waitErr = <-done:
		case <-time.After(r.opts.Grace):
			kill(cmd)
			waitErr = <-done
		}
	}
	res.End = time.Now()
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()

	switch {
	case interrupted && ctx.Err() == nil:
		res.Outcome = report.OutcomeTimedOut
		res.ExitCode = -1
	case interrupted:
		res.Outcome = report.OutcomeCanceled
		res.ExitCode = -1
	case waitErr == nil:
		res.Outcome = report.OutcomeSucceeded
	default:
		res.Outcome = report.OutcomeFailed
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			res.Signal, res.signo = signalOf(exitErr.ProcessState)
		}
	}
	return res
}

// RunCommand executes a one-off command outside of any build.
func (r *Runner) RunCommand(ctx context.Context, name, target, command string) Result {
	return r.Run(ctx, Job{Target: target, Recipe: name, Command: command})
}
