package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMetricsInstrumentAndExpose(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	handler := m.Instrument(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("418", "get")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ipweb_http_requests_total")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveResolution(resolverFor("1.2.3.4", nil, zerolog.Nop()).Resolve(t.Context()))

	called := false
	m.Instrument(func(http.ResponseWriter, *http.Request) { called = true })(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.True(t, called)
}
