package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"ipweb/internal/network"
)

// Listen binds host:port. If the port is busy the next one is tried, up to
// probe ports in total. Port 0 asks the OS for any free port.
func Listen(host string, port, probe int, log zerolog.Logger) (net.Listener, error) {
	if port == 0 || probe < 1 {
		probe = 1
	}
	var lastErr error
	for i := 0; i < probe; i++ {
		current := port + i
		if current > 65535 {
			break
		}
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(current)))
		if err == nil {
			return l, nil
		}
		lastErr = err
		if i+1 < probe {
			log.Warn().Int("port", current).Int("next", current+1).Msg("Port is busy, trying next")
		}
	}
	return nil, fmt.Errorf("no free port in %d..%d: %w", port, port+probe-1, lastErr)
}

// Server serves HTTP on a listener bound by the caller.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	log  zerolog.Logger
	done chan error
}

// New returns a Server for h.
func New(h http.Handler, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log:  log,
		done: make(chan error, 1),
	}
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port is the bound TCP port, 0 before Start.
func (s *Server) Port() int {
	if a, ok := s.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Start serves on ln in the background.
func (s *Server) Start(ln net.Listener) {
	s.ln = ln
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("Listening")
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.log.Error().Err(err).Msg("Server stopped")
		}
		s.done <- err
	}()
}

// Stop shuts down gracefully, waiting for in-flight requests until ctx ends.
// Connections still open at the deadline are closed forcibly.
func (s *Server) Stop(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Graceful shutdown timed out, closing connections")
		err = multierr.Combine(fmt.Errorf("shutdown: %w", err), s.srv.Close(), <-s.done)
		s.log.Info().Msg("Server stopped")
		return err
	}
	select {
	case err = <-s.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.log.Info().Msg("Server stopped")
	return err
}

// PrintBanner writes the local and network URLs of the server. When the
// local address is unavailable the fallback text replaces the network URL.
func PrintBanner(w io.Writer, addr network.ResolvedAddress, port int) {
	networkURL := addr.String()
	if addr.Available() {
		networkURL = "http://" + net.JoinHostPort(addr.String(), strconv.Itoa(port))
	}

	title := color.New(color.FgCyan, color.Bold)
	url := color.New(color.FgGreen)

	fmt.Fprintf(w, "\n  ╔═══════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "  ║  %s  ║\n", title.Sprintf("%-43s", "ipweb"))
	fmt.Fprintf(w, "  ╠═══════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "  ║  Local:   %s ║\n", url.Sprintf("%-35s", fmt.Sprintf("http://localhost:%d", port)))
	fmt.Fprintf(w, "  ║  Network: %s ║\n", url.Sprintf("%-35s", networkURL))
	fmt.Fprintf(w, "  ╚═══════════════════════════════════════════════╝\n\n")
	fmt.Fprintf(w, "  Press Ctrl+C to stop.\n\n")
}
