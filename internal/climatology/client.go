package climatology

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/opendata"
)

// ClientConfig holds configuration for the climatology client.
type ClientConfig struct {
	Config   *config.Config
	OpenData *opendata.Client
	Logger   zerolog.Logger
}

// Client fetches climatological normals and extreme values per station.
type Client struct {
	cfg      *config.Config
	opendata *opendata.Client
	logger   zerolog.Logger
}

// NewClient creates a new climatology client.
func NewClient(cfg ClientConfig) *Client {
	od := cfg.OpenData
	if od == nil {
		odCfg := opendata.DefaultClientConfig("climatology-values")
		odCfg.Logger = cfg.Logger
		od = opendata.NewClient(odCfg)
	}

	return &Client{
		cfg:      cfg.Config,
		opendata: od,
		logger:   cfg.Logger,
	}
}

// Normals fetches the 1991-2020 climatological normals for one station. A
// fetch with no usable payload yields an empty table.
func (c *Client) Normals(ctx context.Context, stationID string, notify opendata.Notifier) (*Table, error) {
	url := c.cfg.URL(c.cfg.Endpoints.Stations.NormalValues, map[string]string{
		"idema": stationID,
	})
	return c.fetchTable(ctx, url, stationID, notify)
}

// Extremes fetches the recorded extreme values of one variable family for
// one station. The parameter is the OpenData variable code (T for
// temperature, P for precipitation, V for wind).
func (c *Client) Extremes(ctx context.Context, stationID, parameter string, notify opendata.Notifier) (*Table, error) {
	url := c.cfg.URL(c.cfg.Endpoints.Stations.ExtremeValues, map[string]string{
		"idema":     stationID,
		"parametro": parameter,
	})
	return c.fetchTable(ctx, url, stationID, notify)
}

// fetchTable runs the two-part fetch and shapes the result: drop columns
// with missing cells, rename the rest through the metadata field table, and
// collapse duplicate names keeping the first.
func (c *Client) fetchTable(ctx context.Context, url, stationID string, notify opendata.Notifier) (*Table, error) {
	data, meta, err := c.opendata.FetchWithMetadata(ctx, url, notify)
	if err != nil {
		if errors.Is(err, opendata.ErrNoData) || errors.Is(err, opendata.ErrExhausted) {
			return NewTable(), nil
		}
		return nil, err
	}

	table, err := DecodeTable(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("station", stationID).Msg("discarding malformed value table")
		return NewTable(), nil
	}

	table.DropIncompleteColumns()

	fields, err := ParseFieldMetadata(meta)
	if err != nil {
		c.logger.Warn().Err(err).Str("station", stationID).Msg("field metadata unreadable, keeping raw column names")
		return table, nil
	}
	table.Rename(fields)

	return table, nil
}
