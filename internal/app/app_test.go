package app

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"

	"ipweb/internal/config"
	"ipweb/internal/server"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.LogFormat = "json"
	return cfg
}

func TestModuleValidates(t *testing.T) {
	err := fx.ValidateApp(Module(testConfig(), Output{Log: io.Discard}))
	assert.NoError(t, err)
}

func TestAppServesHomePage(t *testing.T) {
	var srv *server.Server
	var banner bytes.Buffer

	app := fxtest.New(t,
		Module(testConfig(), Output{Log: io.Discard, Banner: &banner}),
		fx.Populate(&srv),
	)
	app.RequireStart()
	defer app.RequireStop()

	resp, err := http.Get("http://" + srv.Addr().String() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `id="ip-address"`)
	assert.Contains(t, banner.String(), "http://localhost:")

	resp, err = http.Get("http://" + srv.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "ipweb_address_resolutions_total")
	assert.Contains(t, string(metrics), "go_goroutines")
}

func TestAppStopTimeoutCoversShutdownTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ShutdownTimeout = time.Minute

	app := New(cfg, Output{Log: io.Discard})
	require.NoError(t, app.Err())
	assert.GreaterOrEqual(t, app.StopTimeout(), cfg.ShutdownTimeout)
}

func TestAppRejectsUnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = "smoke-signals"

	app := New(cfg, Output{Log: io.Discard})
	assert.Error(t, app.Err())
}

func TestFxLoggerReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	l := &fxLogger{log: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	l.LogEvent(&fxevent.Provided{ConstructorName: "newPages()"})
	assert.Zero(t, buf.Len(), "successful events are debug level")

	l.LogEvent(&fxevent.Started{Err: io.ErrUnexpectedEOF})
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "unexpected EOF")
}
