// Package socketio streams build events to a Socket.IO server so a dashboard
// can follow a build live.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted by the sink.
const (
	EventPlan    = "build:plan"
	EventRecipe  = "build:recipe"
	EventTarget  = "build:target"
	EventSummary = "build:summary"
)

// Options configures the connection.
type Options struct {
	URL                string
	Namespace          string
	RunID              string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// Sink is a report.Sink that emits every event to a Socket.IO namespace.
type Sink struct {
	mu     sync.Mutex
	io     *socket.Socket
	runID  string
	logger *slog.Logger
}

var _ report.Sink = (*Sink)(nil)

// Dial connects to the server and waits for the namespace to accept the
// connection.
func Dial(ctx context.Context, opts Options) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid report URL %q: scheme and host are required", opts.URL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Report stream connected", "namespace", namespace, "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})
	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("connecting report stream: %w", err)
		}
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out while waiting for report stream connection: %w", dialCtx.Err())
	}

	return &Sink{io: io, runID: opts.RunID, logger: logger}, nil
}

func (s *Sink) emit(event string, payload map[string]any) {
	payload["run_id"] = s.runID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.io.Emit(event, payload)
}

func (s *Sink) Plan(e report.PlanEvent)       { s.emit(EventPlan, PlanPayload(e)) }
func (s *Sink) Recipe(e report.RecipeEvent)   { s.emit(EventRecipe, RecipePayload(e)) }
func (s *Sink) Target(e report.TargetEvent)   { s.emit(EventTarget, TargetPayload(e)) }
func (s *Sink) Summary(e report.SummaryEvent) { s.emit(EventSummary, SummaryPayload(e)) }

// Close disconnects from the server.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("Disconnecting report stream")
	s.io.Disconnect()
}
