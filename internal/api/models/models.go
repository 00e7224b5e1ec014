// Package models provides response models for the dashboard API.
package models

import (
	"time"

	"github.com/aemetdash/aemetdash/internal/climatology"
	"github.com/aemetdash/aemetdash/internal/observation"
	"github.com/aemetdash/aemetdash/internal/station"
	"github.com/aemetdash/aemetdash/internal/warning"
)

// Health status values.
const HealthStatusOK = "ok"

// Health is the health check response.
type Health struct {
	Status  string                 `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StationList is the station inventory response.
type StationList struct {
	Stations []station.Station `json:"stations"`
	Count    int               `json:"count"`
}

// ObservationList is the all-stations current observation response. Labels
// maps field names to the human-readable variable names used by dashboards.
type ObservationList struct {
	Observations []observation.Current `json:"observations"`
	Count        int                   `json:"count"`
	Labels       map[string]string     `json:"labels"`
}

// HistoryResponse is the per-station historical observation response.
type HistoryResponse struct {
	StationID string               `json:"stationId"`
	Start     string               `json:"start"`
	End       string               `json:"end"`
	Records   []observation.Record `json:"records"`
	Count     int                  `json:"count"`
}

// ValueTable is the climatological normals / extreme values response.
type ValueTable struct {
	StationID string             `json:"stationId"`
	Parameter string             `json:"parameter,omitempty"`
	Table     *climatology.Table `json:"table"`
}

// WarningList is the active warnings response for one area.
type WarningList struct {
	Area     string                       `json:"area"`
	Date     string                       `json:"date,omitempty"`
	Warnings []warning.Warning            `json:"warnings"`
	Count    int                          `json:"count"`
	ByArea   map[string][]warning.Warning `json:"byArea,omitempty"`
}
