// Package dashboard aggregates the OpenData adapters behind a per-session
// memo cache. Fetched tables are reused for the cache TTL, so a dashboard
// session hits the rate-limited upstream at most once per (endpoint,
// parameters) pair.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/climatology"
	"github.com/aemetdash/aemetdash/internal/observation"
	"github.com/aemetdash/aemetdash/internal/opendata"
	"github.com/aemetdash/aemetdash/internal/station"
	"github.com/aemetdash/aemetdash/internal/warning"
)

// ServiceConfig holds configuration for the dashboard service.
type ServiceConfig struct {
	Stations     *station.Client
	Observations *observation.Client
	Climatology  *climatology.Client
	Warnings     *warning.Client

	// CacheTTL is how long fetched results are reused (default: 10 minutes).
	CacheTTL time.Duration

	Clock  clockwork.Clock
	Logger zerolog.Logger
}

// Service provides cached access to every data category.
type Service struct {
	stations     *station.Client
	observations *observation.Client
	climatology  *climatology.Client
	warnings     *warning.Client
	cacheTTL     time.Duration
	clock        clockwork.Clock
	logger       zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewService creates a new dashboard service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		stations:     cfg.Stations,
		observations: cfg.Observations,
		climatology:  cfg.Climatology,
		warnings:     cfg.Warnings,
		cacheTTL:     cacheTTL,
		clock:        clock,
		logger:       cfg.Logger,
		cache:        make(map[string]cacheEntry),
	}
}

// Stations returns the station inventory.
func (s *Service) Stations(ctx context.Context, notify opendata.Notifier) ([]station.Station, error) {
	v, err := s.cached("stations", func() (interface{}, error) {
		return s.stations.Inventory(ctx, notify)
	})
	if err != nil {
		return nil, err
	}
	return v.([]station.Station), nil
}

// CurrentObservations returns the latest all-stations snapshot.
func (s *Service) CurrentObservations(ctx context.Context, notify opendata.Notifier) ([]observation.Current, error) {
	v, err := s.cached("observations:current", func() (interface{}, error) {
		return s.observations.Current(ctx, notify)
	})
	if err != nil {
		return nil, err
	}
	return v.([]observation.Current), nil
}

// HistoricalObservations returns daily climatology for one station over
// [start, end], both dates inclusive.
func (s *Service) HistoricalObservations(ctx context.Context, stationID string, start, end time.Time, notify opendata.Notifier) ([]observation.Record, error) {
	key := fmt.Sprintf("history:%s:%s:%s", stationID,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	v, err := s.cached(key, func() (interface{}, error) {
		return s.observations.Historical(ctx, stationID, start, end, notify)
	})
	if err != nil {
		return nil, err
	}
	return v.([]observation.Record), nil
}

// Normals returns the climatological normals table for one station.
func (s *Service) Normals(ctx context.Context, stationID string, notify opendata.Notifier) (*climatology.Table, error) {
	v, err := s.cached("normals:"+stationID, func() (interface{}, error) {
		return s.climatology.Normals(ctx, stationID, notify)
	})
	if err != nil {
		return nil, err
	}
	return v.(*climatology.Table), nil
}

// Extremes returns the extreme values table for one station and variable
// family.
func (s *Service) Extremes(ctx context.Context, stationID, parameter string, notify opendata.Notifier) (*climatology.Table, error) {
	v, err := s.cached("extremes:"+stationID+":"+parameter, func() (interface{}, error) {
		return s.climatology.Extremes(ctx, stationID, parameter, notify)
	})
	if err != nil {
		return nil, err
	}
	return v.(*climatology.Table), nil
}

// Warnings returns the full active warning set for an area.
func (s *Service) Warnings(ctx context.Context, area string, notify opendata.Notifier) ([]warning.Warning, error) {
	v, err := s.cached("warnings:"+area, func() (interface{}, error) {
		return s.warnings.Current(ctx, area, notify)
	})
	if err != nil {
		return nil, err
	}
	return v.([]warning.Warning), nil
}

// WarningsForDate returns the warnings active on a given date. Today's
// already-expired warnings are excluded.
func (s *Service) WarningsForDate(ctx context.Context, area string, date time.Time, notify opendata.Notifier) ([]warning.Warning, error) {
	all, err := s.Warnings(ctx, area, notify)
	if err != nil {
		return nil, err
	}
	return warning.FilterByDate(all, date, warning.LocalNow(s.clock.Now())), nil
}

// cached returns the memoized value for key, fetching and storing it when
// absent or expired.
func (s *Service) cached(key string, fetch func() (interface{}, error)) (interface{}, error) {
	s.mu.RLock()
	if entry, ok := s.cache[key]; ok && s.clock.Now().Before(entry.expiresAt) {
		s.mu.RUnlock()
		return entry.value, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check under the write lock
	if entry, ok := s.cache[key]; ok && s.clock.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	value, err := fetch()
	if err != nil {
		return nil, err
	}

	s.cache[key] = cacheEntry{value: value, expiresAt: s.clock.Now().Add(s.cacheTTL)}
	s.logger.Debug().Str("key", key).Msg("cached fetch result")
	return value, nil
}
