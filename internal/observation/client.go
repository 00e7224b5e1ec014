package observation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/opendata"
	"github.com/aemetdash/aemetdash/pkg/units"
)

// apiTimeLayout is the timestamp format the date placeholders expect.
const apiTimeLayout = "2006-01-02T15:04:05UTC"

// recordDateLayout is the date format of daily climatology rows.
const recordDateLayout = "2006-01-02"

// ClientConfig holds configuration for the observation client.
type ClientConfig struct {
	Config *config.Config

	// Snapshot is the client for the all-stations snapshot endpoint.
	// Defaults to the standard retry policy.
	Snapshot *opendata.Client

	// History is the client for the daily-climatology endpoint, which gets a
	// larger budget and longer waits: long series mean many sequential
	// requests against a rate-limited API.
	History *opendata.Client

	// CoolDown is the pause between consecutive chunk requests, half the
	// history retry wait by default.
	CoolDown time.Duration

	Clock  clockwork.Clock
	Logger zerolog.Logger
}

// Client fetches current and historical observations.
type Client struct {
	cfg      *config.Config
	snapshot *opendata.Client
	history  *opendata.Client
	coolDown time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// NewClient creates a new observation client.
func NewClient(cfg ClientConfig) *Client {
	snapshot := cfg.Snapshot
	if snapshot == nil {
		odCfg := opendata.DefaultClientConfig("observation")
		odCfg.Logger = cfg.Logger
		snapshot = opendata.NewClient(odCfg)
	}

	history := cfg.History
	if history == nil {
		odCfg := opendata.DefaultClientConfig("climatology")
		odCfg.MaxAttempts = 20
		odCfg.RetryWait = 10 * time.Second
		odCfg.Logger = cfg.Logger
		history = opendata.NewClient(odCfg)
	}

	coolDown := cfg.CoolDown
	if coolDown == 0 {
		coolDown = 5 * time.Second
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		cfg:      cfg.Config,
		snapshot: snapshot,
		history:  history,
		coolDown: coolDown,
		clock:    clock,
		logger:   cfg.Logger,
	}
}

// currentRecord is the wire shape of the all-stations snapshot.
type currentRecord struct {
	Idema    string        `json:"idema"`
	Ubi      string        `json:"ubi"`
	Lat      float64       `json:"lat"`
	Lon      float64       `json:"lon"`
	Alt      units.Decimal `json:"alt"`
	Fint     string        `json:"fint"`
	Prec     units.Decimal `json:"prec"`
	Vmax     units.Decimal `json:"vmax"`
	Vv       units.Decimal `json:"vv"`
	Dv       units.Decimal `json:"dv"`
	Dmax     units.Decimal `json:"dmax"`
	Hr       units.Decimal `json:"hr"`
	Ta       units.Decimal `json:"ta"`
	Tamax    units.Decimal `json:"tamax"`
	Tamin    units.Decimal `json:"tamin"`
	Pres     units.Decimal `json:"pres"`
	PresNmar units.Decimal `json:"pres_nmar"`
	Nieve    units.Decimal `json:"nieve"`
}

// historicalRecord is the wire shape of a daily climatology row. Numeric
// values arrive as comma-decimal strings.
type historicalRecord struct {
	Fecha      string        `json:"fecha"`
	Indicativo string        `json:"indicativo"`
	Nombre     string        `json:"nombre"`
	Provincia  string        `json:"provincia"`
	Tmed       units.Decimal `json:"tmed"`
	Tmax       units.Decimal `json:"tmax"`
	Tmin       units.Decimal `json:"tmin"`
	Prec       units.Decimal `json:"prec"`
	Dir        units.Decimal `json:"dir"`
	Velmedia   units.Decimal `json:"velmedia"`
	Racha      units.Decimal `json:"racha"`
	Sol        units.Decimal `json:"sol"`
	PresMax    units.Decimal `json:"presMax"`
	PresMin    units.Decimal `json:"presMin"`
	HrMedia    units.Decimal `json:"hrMedia"`
	HrMax      units.Decimal `json:"hrMax"`
	HrMin      units.Decimal `json:"hrMin"`
}

// Current fetches the latest observation snapshot for all stations. A fetch
// with no usable payload yields an empty slice.
func (c *Client) Current(ctx context.Context, notify opendata.Notifier) ([]Current, error) {
	url := c.cfg.URL(c.cfg.Endpoints.Observation.All, nil)

	data, err := c.snapshot.Fetch(ctx, url, notify)
	if err != nil {
		if errors.Is(err, opendata.ErrNoData) || errors.Is(err, opendata.ErrExhausted) {
			return []Current{}, nil
		}
		return nil, fmt.Errorf("fetching current observations: %w", err)
	}

	var records []currentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding current observations: %w", err)
	}

	observations := make([]Current, 0, len(records))
	for _, rec := range records {
		obs := Current{
			StationID:        rec.Idema,
			Location:         rec.Ubi,
			Latitude:         rec.Lat,
			Longitude:        rec.Lon,
			Altitude:         rec.Alt,
			Precipitation:    rec.Prec,
			MaxWindSpeed:     rec.Vmax,
			MeanWindSpeed:    rec.Vv,
			WindDirection:    rec.Dv,
			MaxGustDirection: rec.Dmax,
			Humidity:         rec.Hr,
			Temperature:      rec.Ta,
			MaxTemperature:   rec.Tamax,
			MinTemperature:   rec.Tamin,
			Pressure:         rec.Pres,
			SeaLevelPressure: rec.PresNmar,
			SnowDepth:        rec.Nieve,
		}

		ts, err := parseObservationTime(rec.Fint)
		if err != nil {
			c.logger.Warn().Err(err).Str("station", rec.Idema).Msg("skipping observation with bad timestamp")
			continue
		}
		obs.Time = ts

		observations = append(observations, obs)
	}

	return observations, nil
}

// Historical fetches daily climatology for one station over [start, end],
// both dates inclusive. Spans longer than six months are split into chunks
// issued sequentially with a cool-down in between; chunks without data are
// skipped, and the result is the concatenation of the rest. All chunks
// failing yields an empty slice.
func (c *Client) Historical(ctx context.Context, stationID string, start, end time.Time, notify opendata.Notifier) ([]Record, error) {
	// End date inclusive: chunk over the half-open [start, end+1d).
	chunks := SplitRange(truncateToDay(start), truncateToDay(end).AddDate(0, 0, 1))

	records := []Record{}
	for i, chunk := range chunks {
		notify.Notifyf("request %d/%d", i+1, len(chunks))

		if i > 0 {
			c.clock.Sleep(c.coolDown)
		}

		url := c.cfg.URL(c.cfg.Endpoints.Stations.Climatology, map[string]string{
			"fechaIniStr": chunk.Start.Format(apiTimeLayout),
			"fechaFinStr": chunk.End.Add(-time.Second).Format(apiTimeLayout),
			"idema":       stationID,
		})

		data, err := c.history.Fetch(ctx, url, notify)
		if err != nil {
			switch {
			case errors.Is(err, opendata.ErrNoData):
				notify.Notifyf("no data for %s to %s, moving to the next window",
					chunk.Start.Format(recordDateLayout), chunk.End.Format(recordDateLayout))
				continue
			case errors.Is(err, opendata.ErrExhausted):
				continue
			default:
				return nil, fmt.Errorf("fetching historical observations: %w", err)
			}
		}

		var wire []historicalRecord
		if err := json.Unmarshal(data, &wire); err != nil {
			c.logger.Warn().Err(err).Str("station", stationID).Msg("skipping malformed chunk payload")
			continue
		}

		for _, rec := range wire {
			date, err := time.Parse(recordDateLayout, rec.Fecha)
			if err != nil {
				c.logger.Warn().Err(err).Str("station", stationID).Msg("skipping row with bad date")
				continue
			}
			records = append(records, Record{
				StationID:       rec.Indicativo,
				StationName:     rec.Nombre,
				Province:        rec.Provincia,
				Date:            date,
				MeanTemperature: rec.Tmed,
				MaxTemperature:  rec.Tmax,
				MinTemperature:  rec.Tmin,
				Precipitation:   rec.Prec,
				WindDirection:   rec.Dir,
				MeanWindSpeed:   rec.Velmedia,
				MaxGust:         rec.Racha,
				Sunshine:        rec.Sol,
				MaxPressure:     rec.PresMax,
				MinPressure:     rec.PresMin,
				MeanHumidity:    rec.HrMedia,
				MaxHumidity:     rec.HrMax,
				MinHumidity:     rec.HrMin,
			})
		}
	}

	return records, nil
}

// observationTimeLayouts are the timestamp shapes seen in fint fields.
var observationTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

func parseObservationTime(s string) (time.Time, error) {
	for _, layout := range observationTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized observation timestamp %q", s)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
