package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"ipweb/internal/network"
	"ipweb/internal/view"
)

// AddressResolver reports the host's local address.
type AddressResolver interface {
	Resolve(ctx context.Context) network.ResolvedAddress
}

// Home renders the index page with the server's local address under the
// ipAddress attribute. Lookup failure still renders the page, showing the
// fallback text.
func Home(res AddressResolver, pages view.Renderer, m *Metrics, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := res.Resolve(r.Context())
		m.ObserveResolution(addr)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := pages.Render(w, "index", map[string]any{
			"ipAddress": addr.String(),
		})
		if err != nil {
			log.Error().Err(err).Msg("Error rendering home page")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// HandleHealth returns a simple health check for container probes.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
