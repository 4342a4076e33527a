package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/specialistvlad/burstbuild/internal/target"
	"golang.org/x/term"
)

var (
	colorPass  = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorFail  = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorWarn  = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorMuted = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
)

// Console prints a human readable build log in the classic
// "...updating N targets..." style.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	pass lipgloss.Style
	fail lipgloss.Style
	warn lipgloss.Style
	mute lipgloss.Style
}

// NewConsole writes to w, with colors when color is true.
func NewConsole(w io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Console{
		w:    w,
		pass: r.NewStyle().Foreground(colorPass),
		fail: r.NewStyle().Foreground(colorFail).Bold(true),
		warn: r.NewStyle().Foreground(colorWarn),
		mute: r.NewStyle().Foreground(colorMuted),
	}
}

// ShouldUseColor honors NO_COLOR, CLICOLOR and CLICOLOR_FORCE, and otherwise
// enables color only when f is a terminal.
func ShouldUseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if _, ok := os.LookupEnv("CLICOLOR_FORCE"); ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) Plan(e PlanEvent) {
	c.printf("%s\n", c.mute.Render(fmt.Sprintf("...found %s...", plural(e.Found, "target"))))
	if e.Stale > 0 {
		c.printf("%s\n", c.mute.Render(fmt.Sprintf("...updating %s...", plural(e.Stale, "target"))))
	}
}

func (c *Console) Recipe(e RecipeEvent) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", c.pass.Render(e.Recipe), e.Target)
	if !e.Quiet || e.Outcome != OutcomeSucceeded {
		if e.Command != "" {
			fmt.Fprintf(&b, "%s\n", strings.TrimRight(e.Command, "\n"))
		}
	}
	if len(e.Stdout) > 0 {
		b.Write(e.Stdout)
		if e.Stdout[len(e.Stdout)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	if e.Outcome != OutcomeSucceeded {
		if len(e.Stderr) > 0 {
			b.Write(e.Stderr)
			if e.Stderr[len(e.Stderr)-1] != '\n' {
				b.WriteByte('\n')
			}
		}
		detail := e.Outcome.String()
		if e.Outcome == OutcomeFailed && e.Signal == "" {
			detail = fmt.Sprintf("exit status %d", e.ExitCode)
		} else if e.Signal != "" {
			detail = "signal " + e.Signal
		}
		fmt.Fprintf(&b, "%s\n", c.fail.Render(fmt.Sprintf("...failed %s %s (%s)...", e.Recipe, e.Target, detail)))
	}
	c.printf("%s", b.String())
}

func (c *Console) Target(e TargetEvent) {
	switch e.Status {
	case target.StatusSkipped:
		c.printf("%s\n", c.warn.Render(fmt.Sprintf("...skipped %s: %s...", e.Target, e.Reason)))
	case target.StatusFailed:
		if e.Reason != "" {
			c.printf("%s\n", c.fail.Render(fmt.Sprintf("...%s: %s...", e.Target, e.Reason)))
		}
	}
}

func (c *Console) Summary(e SummaryEvent) {
	if e.Failed > 0 {
		c.printf("%s\n", c.fail.Render(fmt.Sprintf("...failed updating %s...", plural(e.Failed, "target"))))
	}
	if e.Skipped > 0 {
		c.printf("%s\n", c.warn.Render(fmt.Sprintf("...skipped %s...", plural(e.Skipped, "target"))))
	}
	if e.Made > 0 {
		c.printf("%s\n", c.pass.Render(fmt.Sprintf("...updated %s...", plural(e.Made, "target"))))
	}
}
