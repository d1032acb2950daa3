package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"ipweb/internal/handler"
	"ipweb/internal/view"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Resolver handler.AddressResolver
	Pages    view.Renderer
	Metrics  *handler.Metrics
	Limiter  *handler.RateLimiter
	Log      zerolog.Logger
}

// wrap applies recovery, access logging, request metrics, security headers
// and rate limiting to a handler.
func (d Deps) wrap(h http.HandlerFunc) http.HandlerFunc {
	return handler.Chain(h,
		handler.Recover(d.Log),
		handler.RequestLog(d.Log),
		d.Metrics.Instrument,
		handler.SecureHeaders,
		d.Limiter.Middleware,
	)
}

// RegisterRoutes wires the page, probe, metrics and asset routes onto mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	mux.HandleFunc("GET /{$}", d.wrap(handler.Home(d.Resolver, d.Pages, d.Metrics, d.Log)))
	mux.HandleFunc("GET /static/", d.wrap(view.Static("/static/").ServeHTTP))
	mux.HandleFunc("GET /health", handler.Recover(d.Log)(handler.HandleHealth))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
}
