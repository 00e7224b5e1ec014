package station

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/opendata"
	"github.com/aemetdash/aemetdash/pkg/units"
)

// provinceFixes corrects the two known inconsistencies in the source
// inventory: a historical region name and a truncated province name.
var provinceFixes = map[string]string{
	"BALEARES":               "ILLES BALEARS",
	"SANTA CRUZ DE TENERIFE": "STA. CRUZ DE TENERIFE",
}

// ClientConfig holds configuration for the inventory client.
type ClientConfig struct {
	Config   *config.Config
	OpenData *opendata.Client
	Logger   zerolog.Logger
}

// Client fetches and normalizes the station inventory.
type Client struct {
	cfg      *config.Config
	opendata *opendata.Client
	logger   zerolog.Logger
}

// NewClient creates a new inventory client.
func NewClient(cfg ClientConfig) *Client {
	od := cfg.OpenData
	if od == nil {
		odCfg := opendata.DefaultClientConfig("stations")
		odCfg.Logger = cfg.Logger
		od = opendata.NewClient(odCfg)
	}

	return &Client{
		cfg:      cfg.Config,
		opendata: od,
		logger:   cfg.Logger,
	}
}

// stationRecord is the inventory wire shape. Coordinates are fixed-width
// sexagesimal strings, altitude a locale-formatted decimal string.
type stationRecord struct {
	Indicativo string        `json:"indicativo"`
	Nombre     string        `json:"nombre"`
	Provincia  string        `json:"provincia"`
	Latitud    string        `json:"latitud"`
	Longitud   string        `json:"longitud"`
	Altitud    units.Decimal `json:"altitud"`
}

// Inventory fetches all stations. A request for which the API has no usable
// payload yields an empty slice, never an error; rows that fail coordinate
// normalization are skipped with a logged diagnostic.
func (c *Client) Inventory(ctx context.Context, notify opendata.Notifier) ([]Station, error) {
	url := c.cfg.URL(c.cfg.Endpoints.Stations.InventoryAll, nil)

	data, err := c.opendata.Fetch(ctx, url, notify)
	if err != nil {
		if errors.Is(err, opendata.ErrNoData) || errors.Is(err, opendata.ErrExhausted) {
			return []Station{}, nil
		}
		return nil, fmt.Errorf("fetching station inventory: %w", err)
	}

	var records []stationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding station inventory: %w", err)
	}

	stations := make([]Station, 0, len(records))
	for _, rec := range records {
		st, err := normalize(rec)
		if err != nil {
			c.logger.Warn().Err(err).Str("station", rec.Indicativo).Msg("skipping station")
			continue
		}
		stations = append(stations, st)
	}

	return stations, nil
}

func normalize(rec stationRecord) (Station, error) {
	lat, err := units.ParseCoordinate(rec.Latitud)
	if err != nil {
		return Station{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := units.ParseCoordinate(rec.Longitud)
	if err != nil {
		return Station{}, fmt.Errorf("longitude: %w", err)
	}

	province := rec.Provincia
	if fixed, ok := provinceFixes[province]; ok {
		province = fixed
	}

	return Station{
		ID:        rec.Indicativo,
		Name:      rec.Nombre,
		Province:  province,
		Latitude:  lat,
		Longitude: lon,
		Altitude:  rec.Altitud.Float64,
	}, nil
}
