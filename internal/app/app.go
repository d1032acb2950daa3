// Package app assembles the server from its parts with go.uber.org/fx.
package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"ipweb/internal/config"
	"ipweb/internal/handler"
	"ipweb/internal/logging"
	"ipweb/internal/network"
	"ipweb/internal/server"
	"ipweb/internal/view"
)

// sweepInterval is how often idle rate-limit entries are dropped.
const sweepInterval = 5 * time.Minute

// stopMargin is added on top of the configured shutdown timeout so the
// server's own deadline fires before fx gives up on the stop hooks.
const stopMargin = 5 * time.Second

// Output is where the log and the startup banner go. A nil Banner
// suppresses the banner.
type Output struct {
	Log    io.Writer
	Banner io.Writer
}

// Module provides every component of the server for cfg.
func Module(cfg *config.Config, out Output) fx.Option {
	return fx.Options(
		fx.Supply(cfg, out),
		fx.Provide(
			newLogger,
			newResolver,
			newPages,
			newRegistry,
			handler.NewMetrics,
			newRateLimiter,
			newMux,
			newServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

// New builds the application. Run it with (*fx.App).Run, or Start and Stop.
// The stop timeout always covers cfg.ShutdownTimeout.
func New(cfg *config.Config, out Output, opts ...fx.Option) *fx.App {
	opts = append([]fx.Option{
		Module(cfg, out),
		fx.StopTimeout(cfg.ShutdownTimeout + stopMargin),
		fx.WithLogger(func(log zerolog.Logger) fxevent.Logger {
			return &fxLogger{log: logging.Component(log, "fx")}
		}),
	}, opts...)
	return fx.New(opts...)
}

func newLogger(cfg *config.Config, out Output) zerolog.Logger {
	w := out.Log
	if w == nil {
		w = os.Stderr
	}
	return logging.New(w, cfg.LogLevel, cfg.LogFormat)
}

func newResolver(cfg *config.Config, log zerolog.Logger) (*network.Resolver, error) {
	lookup, err := network.LookupFor(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return network.NewResolver(lookup, cfg.FallbackText, logging.Component(log, "network")), nil
}

func newPages() (view.Renderer, error) {
	return view.New(nil)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newRateLimiter(cfg *config.Config) *handler.RateLimiter {
	return handler.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
}

func newMux(res *network.Resolver, pages view.Renderer, m *handler.Metrics, rl *handler.RateLimiter, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	server.RegisterRoutes(mux, server.Deps{
		Resolver: res,
		Pages:    pages,
		Metrics:  m,
		Limiter:  rl,
		Log:      logging.Component(log, "http"),
	})
	return mux
}

func newServer(h http.Handler, log zerolog.Logger) *server.Server {
	return server.New(h, logging.Component(log, "server"))
}

type lifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Output    Output
	Server    *server.Server
	Resolver  *network.Resolver
	Limiter   *handler.RateLimiter
	Log       zerolog.Logger
}

// registerLifecycle binds the port and serves on start, and drains
// in-flight requests on stop.
func registerLifecycle(p lifecycleParams) {
	log := logging.Component(p.Log, "server")
	sweepCtx, stopSweep := context.WithCancel(context.Background())

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := server.Listen(p.Config.Host, p.Config.Port, p.Config.PortProbe, log)
			if err != nil {
				stopSweep()
				return err
			}
			p.Server.Start(ln)
			go p.Limiter.Run(sweepCtx, sweepInterval)

			if p.Output.Banner != nil {
				server.PrintBanner(p.Output.Banner, p.Resolver.Resolve(ctx), p.Server.Port())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopSweep()
			ctx, cancel := context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			defer cancel()
			return p.Server.Stop(ctx)
		},
	})
}
