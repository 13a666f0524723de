package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/animator"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/display"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/events"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/httpapi"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/metrics"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/eyetools"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/mcpserver"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/toolbox"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/transport"
)

// Version is reported by the MCP server.
var Version = "dev"

// eventBuffer is the subscription depth of the metrics collector.
const eventBuffer = 256

// errStdioClosed stops the daemon when the MCP stdio peer hangs up.
var errStdioClosed = errors.New("engine: mcp stdio session closed")

// Engine is the composition root. It owns the display link, the scheduler
// and every control surface, and runs them under one supervisor.
type Engine struct {
	cfg Config
	log *slog.Logger

	out       io.WriteCloser
	events    *events.Bus
	state     *animator.State
	screen    *display.Screen
	scheduler *animator.Scheduler
	metrics   *metrics.Collector
	tools     *toolbox.ToolBox
	mcp       *mcpserver.MCPServer

	server   *http.Server
	listener net.Listener

	stdin  io.Reader
	stdout io.Writer
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	log        *slog.Logger
	stdin      io.Reader
	stdout     io.Writer
	schedulerO []animator.Option
}

// WithLogger sets the logger. Defaults to one built from Config.Log writing
// to stderr.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.log = l }
}

// WithStdio replaces the process's stdin and stdout for the MCP stdio
// session.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *engineOptions) {
		o.stdin = in
		o.stdout = out
	}
}

// WithSchedulerOptions passes extra options to the scheduler.
func WithSchedulerOptions(opts ...animator.Option) Option {
	return func(o *engineOptions) { o.schedulerO = append(o.schedulerO, opts...) }
}

// New creates an Engine from the given configuration. It validates the
// config, opens the display transport and binds the HTTP listener, so a
// returned Engine is ready to Run. Call Close if Run is never called.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = cfg.Log.NewLogger(os.Stderr)
	}

	out, err := transport.Open(ctx, cfg.Display.Transport)
	if err != nil {
		return nil, fmt.Errorf("engine: display: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		log:    o.log,
		out:    out,
		events: events.NewBus(),
		state:  animator.NewState(),
		stdin:  o.stdin,
		stdout: o.stdout,
	}

	e.screen = display.New(out, animator.NewController(e.state),
		display.WithQueueSize(cfg.Display.QueueSize),
		display.WithEvents(e.events),
		display.WithLogger(e.log.With("component", "display")),
	)

	schedOpts := []animator.Option{animator.WithLogger(e.log.With("component", "scheduler"))}
	if seed := cfg.Animation.Seed; seed != 0 {
		schedOpts = append(schedOpts, animator.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	schedOpts = append(schedOpts, o.schedulerO...)
	e.scheduler = animator.NewScheduler(e.state, e.screen, schedOpts...)

	e.metrics = metrics.New()
	e.tools = eyetools.Tools(e.screen, e.log.With("component", "tools"))

	e.mcp = mcpserver.New(cfg.MCP.Name, Version)
	e.mcp.RegisterToolBox(e.tools)

	if !cfg.HTTP.Disabled {
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("engine: listen %s: %w", cfg.HTTP.Addr, err)
		}
		e.listener = ln
		e.server = &http.Server{
			Handler: httpapi.NewMux(httpapi.Options{
				Eye:         e.screen,
				Tools:       e.tools,
				Registry:    e.metrics.Registry(),
				MCP:         e.mcp.HTTPHandler(),
				CORSOrigins: cfg.HTTP.CORSOrigins,
				Logger:      e.log.With("component", "http"),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return e, nil
}

// Events returns the engine's event bus.
func (e *Engine) Events() *events.Bus { return e.events }

// Screen returns the display facade.
func (e *Engine) Screen() *display.Screen { return e.screen }

// Tools returns the eye tools.
func (e *Engine) Tools() *toolbox.ToolBox { return e.tools }

// Addr returns the HTTP listen address, or nil when the HTTP API is disabled.
func (e *Engine) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// Run starts the display writer, the scheduler, the metrics collector and
// the configured control surfaces, and blocks until ctx is cancelled, a
// component fails or the MCP stdio peer disconnects. A clean stop returns
// nil. Run closes the transport before returning.
func (e *Engine) Run(ctx context.Context) error {
	defer func() { _ = e.Close() }()

	sub := e.events.Subscribe(eventBuffer)
	defer e.events.Unsubscribe(sub)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.screen.Run(gctx) })
	g.Go(func() error { return e.scheduler.Run(gctx) })
	g.Go(func() error { return e.metrics.Run(gctx, sub) })

	if e.server != nil {
		// Request contexts derive from gctx so long-lived MCP streams end on
		// shutdown.
		e.server.BaseContext = func(net.Listener) context.Context { return gctx }
		g.Go(func() error {
			e.log.InfoContext(gctx, "http api listening", "addr", e.listener.Addr().String())
			if err := e.server.Serve(e.listener); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("engine: http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return e.shutdownHTTP()
		})
	}

	if e.cfg.MCP.Stdio {
		g.Go(func() error {
			e.log.InfoContext(gctx, "mcp stdio session started")
			var err error
			if e.stdin != nil {
				err = e.mcp.Serve(gctx, e.stdin, e.stdout)
			} else {
				err = e.mcp.ServeStdio(gctx)
			}
			if err != nil && gctx.Err() == nil {
				e.log.WarnContext(gctx, "mcp stdio session ended", "error", err)
			}
			return errStdioClosed
		})
	}

	if greeting := e.cfg.Display.Greeting; greeting != "" {
		e.screen.SendSubtitle(greeting)
	}

	err := g.Wait()
	if errors.Is(err, errStdioClosed) || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		e.log.Info("engine stopped")
		return nil
	}

	if err != nil {
		e.log.Error("engine failed", "error", err)
	}

	return err
}

func (e *Engine) shutdownHTTP() error {
	timeout, _ := e.cfg.HTTP.shutdownTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := e.server.Shutdown(ctx); err != nil {
		e.log.Warn("http shutdown timed out, closing connections", "error", err)
		_ = e.server.Close()
	}

	return nil
}

// Close releases the display transport and the HTTP listener. It is safe to
// call more than once.
func (e *Engine) Close() error {
	var errs []error

	if e.listener != nil {
		if err := e.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}

	if e.out != nil {
		if err := e.out.Close(); err != nil {
			errs = append(errs, err)
		}
		e.out = nil
	}

	return errors.Join(errs...)
}
