package dashboard_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/dashboard"
	"github.com/aemetdash/aemetdash/internal/opendata"
	"github.com/aemetdash/aemetdash/internal/station"
)

func newCountingInventoryServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/inventario/", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, `{"estado":200,"datos":%q}`, server.URL+"/datos")
	})
	mux.HandleFunc("/datos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"indicativo":"3195","nombre":"MADRID, RETIRO","provincia":"MADRID",
			"latitud":"403000N","longitud":"0023015W","altitud":"667"}]`))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testService(t *testing.T, serverURL string, clock clockwork.Clock) *dashboard.Service {
	t.Helper()

	cfg, err := config.Parse([]byte(
		"url_base: " + serverURL + "\n" +
			"endpoints:\n" +
			"  stations:\n    inventory_all: /inventario\n" +
			"  observation:\n    all: /obs\n" +
			"  warnings:\n    current: /warn\n"))
	require.NoError(t, err)

	odCfg := opendata.DefaultClientConfig("dashboard-test")
	odCfg.MaxAttempts = 2
	odCfg.RetryWait = time.Millisecond
	odCfg.Logger = zerolog.Nop()

	stations := station.NewClient(station.ClientConfig{
		Config:   cfg,
		OpenData: opendata.NewClient(odCfg),
		Logger:   zerolog.Nop(),
	})

	return dashboard.NewService(dashboard.ServiceConfig{
		Stations: stations,
		CacheTTL: 10 * time.Minute,
		Clock:    clock,
		Logger:   zerolog.Nop(),
	})
}

func TestService_Stations_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	server := newCountingInventoryServer(t, &hits)
	svc := testService(t, server.URL, clockwork.NewFakeClock())

	first, err := svc.Stations(context.Background(), opendata.NopNotifier)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Stations(context.Background(), opendata.NopNotifier)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load(), "second call must be served from cache")
}

func TestService_Stations_RefetchesAfterExpiry(t *testing.T) {
	var hits atomic.Int64
	server := newCountingInventoryServer(t, &hits)
	clock := clockwork.NewFakeClock()
	svc := testService(t, server.URL, clock)

	_, err := svc.Stations(context.Background(), opendata.NopNotifier)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	_, err = svc.Stations(context.Background(), opendata.NopNotifier)
	require.NoError(t, err)

	assert.Equal(t, int64(2), hits.Load())
}
