package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/burstbuild/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// options collects the flags shared by every subcommand.
type options struct {
	root            string
	manifests       []string
	jobs            int
	timeout         time.Duration
	force           bool
	keepGoing       bool
	quitQuick       bool
	noExec          bool
	envFile         string
	reportURL       string
	logFormat       string
	logLevel        string
	color           string
	healthcheckPort int
}

func (o *options) config(targets []string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		Root:            o.root,
		Manifests:       o.manifests,
		Targets:         targets,
		Jobs:            o.jobs,
		Timeout:         o.timeout,
		Force:           o.force,
		KeepGoing:       o.keepGoing,
		QuitQuick:       o.quitQuick,
		NoExec:          o.noExec,
		EnvFile:         o.envFile,
		ReportURL:       o.reportURL,
		LogFormat:       strings.ToLower(o.logFormat),
		LogLevel:        strings.ToLower(o.logLevel),
		Color:           strings.ToLower(o.color),
		HealthcheckPort: o.healthcheckPort,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}

func (o *options) newApp(cmd *cobra.Command, targets []string) (*app.App, error) {
	cfg, err := o.config(targets)
	if err != nil {
		return nil, err
	}
	return app.NewApp(cmd.Context(), cmd.OutOrStdout(), cfg)
}

// NewRootCommand builds the command tree. Output goes to outW.
func NewRootCommand(outW io.Writer) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "burstbuild [targets...]",
		Short: "burstbuild - an incremental, parallel build engine.",
		Long: `burstbuild brings targets up to date by running the recipes of every target
that is missing or older than its dependencies, in parallel.

Targets, dependencies and recipes are declared in .hcl manifest files.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.build(cmd, args)
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&o.root, "root", "C", ".", "Directory targets are bound against.")
	pf.StringSliceVarP(&o.manifests, "file", "f", nil, "Manifest file or directory. Defaults to the root directory.")
	pf.IntVarP(&o.jobs, "jobs", "j", 1, "Maximum number of recipes running at once.")
	pf.DurationVar(&o.timeout, "timeout", 0, "Time limit for each recipe. 0 is unlimited.")
	pf.BoolVarP(&o.force, "force", "a", false, "Rebuild every target regardless of timestamps.")
	pf.BoolVarP(&o.keepGoing, "keep-going", "k", false, "Keep building independent targets after a failure.")
	pf.BoolVarP(&o.quitQuick, "quit-quick", "q", false, "Stop starting new recipes after the first failure.")
	pf.BoolVarP(&o.noExec, "dry-run", "n", false, "Print recipes without running them.")
	pf.StringVar(&o.envFile, "env-file", "", "Dotenv file added to the recipe environment.")
	pf.StringVar(&o.reportURL, "report-url", "", "Socket.IO server receiving live build events.")
	pf.StringVar(&o.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&o.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&o.color, "color", app.ColorAuto, "Colored output. Options: 'auto', 'always', 'never'.")
	pf.IntVar(&o.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	root.AddCommand(
		&cobra.Command{
			Use:   "build [targets...]",
			Short: "Bring targets up to date (the default).",
			RunE:  o.build,
		},
		&cobra.Command{
			Use:   "graph [targets...]",
			Short: "Print the dependency graph in Graphviz DOT format.",
			RunE:  o.graph,
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove every file generated by earlier builds.",
			Args:  cobra.NoArgs,
			RunE:  o.clean,
		},
		&cobra.Command{
			Use:   "run -- COMMAND",
			Short: "Run one shell command in the build environment.",
			Args:  cobra.MinimumNArgs(1),
			RunE:  o.run,
		},
	)
	return root
}

func (o *options) build(cmd *cobra.Command, args []string) error {
	a, err := o.newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.Run(cmd.Context())
	if err != nil {
		return err
	}
	if status != 0 {
		return &ExitError{Code: status}
	}
	return nil
}

func (o *options) graph(cmd *cobra.Command, args []string) error {
	a, err := o.newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Graph(cmd.OutOrStdout())
}

func (o *options) clean(cmd *cobra.Command, _ []string) error {
	a, err := o.newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.Clean(cmd.Context())
	for _, f := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", f)
	}
	return err
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	a, err := o.newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.RunCommand(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if status != 0 {
		return &ExitError{Code: status}
	}
	return nil
}

// Execute parses args and runs the selected command.
func Execute(ctx context.Context, outW io.Writer, args []string) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) && isUsageError(err) {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return err
}

// isUsageError matches the argument errors cobra reports without a typed
// error.
func isUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.Contains(msg, "arg(s)")
}
