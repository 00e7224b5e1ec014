package opendata_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aemetdash/aemetdash/internal/opendata"
)

// testConfig returns a client config with waits short enough for tests.
func testConfig(name string) opendata.ClientConfig {
	cfg := opendata.DefaultClientConfig(name)
	cfg.Timeout = 2 * time.Second
	cfg.RetryWait = time.Millisecond
	cfg.RateLimitWait = 5 * time.Millisecond
	cfg.Logger = zerolog.Nop()
	return cfg
}

// newTwoStepServer builds an httptest server where / is the handshake and
// /datos and /metadatos serve the secondary payloads.
func newTwoStepServer(t *testing.T, datos, metadatos http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		body := fmt.Sprintf(`{"estado":200,"descripcion":"exito","datos":%q,"metadatos":%q}`,
			server.URL+"/datos", server.URL+"/metadatos")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/datos", datos)
	if metadatos != nil {
		mux.HandleFunc("/metadatos", metadatos)
	}

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Fetch_TwoStepProtocol(t *testing.T) {
	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"indicativo":"3195"}]`))
	}, nil)

	client := opendata.NewClient(testConfig("test"))

	data, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"indicativo":"3195"}]`, string(data))
}

func TestClient_Fetch_RetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 10 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"estado":200,"datos":%q}`, server.URL+"/datos")
	})
	mux.HandleFunc("/datos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := opendata.NewClient(testConfig("test-retry"))

	data, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(data))
	assert.Equal(t, int32(10), attempts.Load(), "should succeed on the 10th attempt")
}

func TestClient_Fetch_ExhaustsBudget(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := opendata.NewClient(testConfig("test-exhaust"))

	_, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	assert.ErrorIs(t, err, opendata.ErrExhausted)
	assert.Equal(t, int32(10), attempts.Load(), "an 11th attempt must not happen")
}

func TestClient_Fetch_DatosNotFoundIsNoData(t *testing.T) {
	var attempts atomic.Int32

	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	client := opendata.NewClient(testConfig("test-404"))

	_, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	assert.ErrorIs(t, err, opendata.ErrNoData)
	assert.Equal(t, int32(1), attempts.Load(), "404 on datos must not consume the retry budget")
}

func TestClient_Fetch_HandshakeReportsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"estado":404,"descripcion":"No hay datos que satisfagan esos criterios"}`))
	}))
	defer server.Close()

	client := opendata.NewClient(testConfig("test-nodata"))

	_, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	assert.ErrorIs(t, err, opendata.ErrNoData)
}

func TestClient_Fetch_ErrorBodyInsidePayload(t *testing.T) {
	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"estado":404,"descripcion":"No hay datos que satisfagan esos criterios"}`))
	}, nil)

	client := opendata.NewClient(testConfig("test-errbody"))

	_, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	assert.ErrorIs(t, err, opendata.ErrNoData)
}

func TestClient_Fetch_EmptyPayloadRetried(t *testing.T) {
	var attempts atomic.Int32

	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			_, _ = w.Write([]byte("   "))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	client := opendata.NewClient(testConfig("test-empty"))

	data, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Fetch_RateLimited(t *testing.T) {
	var attempts atomic.Int32

	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[42]`))
	}, nil)

	client := opendata.NewClient(testConfig("test-429"))

	start := time.Now()
	data, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	require.NoError(t, err)
	assert.Equal(t, `[42]`, string(data))
	assert.Equal(t, int32(2), attempts.Load())
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond,
		"429 must wait the longer rate-limit delay")
}

func TestClient_FetchWithMetadata(t *testing.T) {
	server := newTwoStepServer(t,
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"tm_min":"3,2"}]`))
		},
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"campos":[{"id":"tm_min","descripcion":"Temperatura mínima"}]}`))
		})

	client := opendata.NewClient(testConfig("test-meta"))

	data, meta, err := client.FetchWithMetadata(context.Background(), server.URL, opendata.NopNotifier)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tm_min")
	assert.Contains(t, string(meta), "Temperatura mínima")
}

func TestClient_FetchArchive_SkipsShapeChecks(t *testing.T) {
	// A binary payload may legitimately start with '{' without being JSON.
	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{\x00\x01binary tar bytes"))
	}, nil)

	client := opendata.NewClient(testConfig("test-archive"))

	data, err := client.FetchArchive(context.Background(), server.URL, opendata.NopNotifier)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), data[0])
}

func TestClient_Fetch_NotifierReceivesProgress(t *testing.T) {
	server := newTwoStepServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	client := opendata.NewClient(testConfig("test-notify"))

	var mu sync.Mutex
	var messages []string
	notify := func(msg string) {
		mu.Lock()
		messages = append(messages, msg)
		mu.Unlock()
	}

	_, err := client.Fetch(context.Background(), server.URL, notify)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], "attempt 1/10")
}

func TestClient_CircuitOpensAfterRepeatedExhaustion(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig("test-breaker")
	cfg.MaxAttempts = 2
	cfg.TripThreshold = 2
	client := opendata.NewClient(cfg)

	for i := 0; i < 2; i++ {
		_, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
		assert.ErrorIs(t, err, opendata.ErrExhausted)
	}

	before := attempts.Load()
	_, err := client.Fetch(context.Background(), server.URL, opendata.NopNotifier)
	assert.ErrorIs(t, err, opendata.ErrExhausted)
	assert.Equal(t, before, attempts.Load(), "open circuit must not hit the network")
}
