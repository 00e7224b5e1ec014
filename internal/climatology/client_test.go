package climatology_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aemetdash/aemetdash/internal/climatology"
	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/opendata"
)

const normalsPayload = `[
	{"indicativo":"3195","mes":"1","tm_min":"2,6","tm_max":"10,7","w_racha":""},
	{"indicativo":"3195","mes":"2","tm_min":"3,4","tm_max":"12,8","w_racha":"21"}
]`

const normalsMetadata = `{
	"unidad_generadora":"Servicio de Banco Nacional de Datos Climatológicos",
	"campos":[
		{"id":"indicativo","descripcion":"Indicativo climatológico"},
		{"id":"mes","descripcion":"Mes"},
		{"id":"tm_min","descripcion":"Temperatura mínima"},
		{"id":"tm_max","descripcion":"Temperatura máxima"}
	]
}`

func newValuesServer(t *testing.T, payload, metadata string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/valores/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"estado":200,"datos":%q,"metadatos":%q}`,
			server.URL+"/datos", server.URL+"/metadatos")
	})
	mux.HandleFunc("/datos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	})
	mux.HandleFunc("/metadatos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(metadata))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testClimatologyClient(t *testing.T, serverURL string) *climatology.Client {
	t.Helper()

	cfg, err := config.Parse([]byte(
		"url_base: " + serverURL + "\n" +
			"endpoints:\n" +
			"  stations:\n" +
			"    inventory_all: /inventario\n" +
			"    normal_values: /valores/normales/{idema}\n" +
			"    extreme_values: /valores/extremos/{parametro}/{idema}\n" +
			"  observation:\n    all: /obs\n" +
			"  warnings:\n    current: /warn\n"))
	require.NoError(t, err)

	odCfg := opendata.DefaultClientConfig("climatology-test")
	odCfg.MaxAttempts = 2
	odCfg.RetryWait = time.Millisecond
	odCfg.Logger = zerolog.Nop()

	return climatology.NewClient(climatology.ClientConfig{
		Config:   cfg,
		OpenData: opendata.NewClient(odCfg),
		Logger:   zerolog.Nop(),
	})
}

func TestClient_Normals_RenamesColumns(t *testing.T) {
	server := newValuesServer(t, normalsPayload, normalsMetadata)
	client := testClimatologyClient(t, server.URL)

	table, err := client.Normals(context.Background(), "3195", opendata.NopNotifier)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	// The gust column has an empty cell and is dropped before renaming.
	want := []string{"Indicativo climatológico", "Mes", "Temperatura mínima", "Temperatura máxima"}
	assert.Equal(t, want, table.Columns)
	assert.NotContains(t, table.Columns, "tm_min")
	assert.Equal(t, "2,6", table.Rows[0]["Temperatura mínima"])
}

func TestClient_Extremes_SubstitutesParameter(t *testing.T) {
	var requested string

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/valores/", func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		fmt.Fprintf(w, `{"estado":200,"datos":%q,"metadatos":%q}`,
			server.URL+"/datos", server.URL+"/metadatos")
	})
	mux.HandleFunc("/datos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"indicativo":"3195","temMax":"40,7"}]`))
	})
	mux.HandleFunc("/metadatos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"campos":[{"id":"temMax","descripcion":"Temperatura máxima absoluta"}]}`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := testClimatologyClient(t, server.URL)

	table, err := client.Extremes(context.Background(), "3195", "T", opendata.NopNotifier)
	require.NoError(t, err)

	assert.Equal(t, "/valores/extremos/T/3195/", requested)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "40,7", table.Rows[0]["Temperatura máxima absoluta"])
}

func TestClient_Normals_EmptyOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClimatologyClient(t, server.URL)

	table, err := client.Normals(context.Background(), "3195", opendata.NopNotifier)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.True(t, table.Empty())
}

func TestClient_Normals_MalformedPayloadIsEmpty(t *testing.T) {
	server := newValuesServer(t, `[["not","a","record"]]`, normalsMetadata)
	client := testClimatologyClient(t, server.URL)

	table, err := client.Normals(context.Background(), "3195", opendata.NopNotifier)
	require.NoError(t, err)
	assert.True(t, table.Empty())
}
