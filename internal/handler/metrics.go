package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ipweb/internal/network"
)

// Metrics holds the Prometheus collectors exposed on /metrics.
type Metrics struct {
	Resolutions *prometheus.CounterVec
	Requests    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipweb",
			Name:      "address_resolutions_total",
			Help:      "Local address lookups by outcome.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipweb",
			Name:      "http_requests_total",
			Help:      "HTTP requests by status code and method.",
		}, []string{"code", "method"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Resolutions, m.Requests)
	return m
}

// ObserveResolution counts one lookup outcome. Canceled lookups are not
// counted. Safe on a nil *Metrics.
func (m *Metrics) ObserveResolution(addr network.ResolvedAddress) {
	if m == nil || addr.Canceled() {
		return
	}
	result := "resolved"
	if !addr.Available() {
		result = "fallback"
	}
	m.Resolutions.WithLabelValues(result).Inc()
}

// Instrument counts requests served by h.
func (m *Metrics) Instrument(h http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return h
	}
	return promhttp.InstrumentHandlerCounter(m.Requests, h)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
