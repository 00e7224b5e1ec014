// Package observation provides current and historical weather observations
// from the AEMET station network.
package observation

import (
	"time"

	"github.com/aemetdash/aemetdash/pkg/units"
)

// Record is one day of climatological observations for one station. Every
// variable is optional; the source payload carries locale-formatted decimal
// strings that are coerced at decode time.
type Record struct {
	StationID   string    `json:"stationId"`
	StationName string    `json:"stationName"`
	Province    string    `json:"province"`
	Date        time.Time `json:"date"`

	MeanTemperature units.Decimal `json:"meanTemperature"`
	MaxTemperature  units.Decimal `json:"maxTemperature"`
	MinTemperature  units.Decimal `json:"minTemperature"`
	Precipitation   units.Decimal `json:"precipitation"`
	WindDirection   units.Decimal `json:"windDirection"`
	MeanWindSpeed   units.Decimal `json:"meanWindSpeed"`
	MaxGust         units.Decimal `json:"maxGust"`
	Sunshine        units.Decimal `json:"sunshine"`
	MaxPressure     units.Decimal `json:"maxPressure"`
	MinPressure     units.Decimal `json:"minPressure"`
	MeanHumidity    units.Decimal `json:"meanHumidity"`
	MaxHumidity     units.Decimal `json:"maxHumidity"`
	MinHumidity     units.Decimal `json:"minHumidity"`
}

// Current is one station's latest conventional observation.
type Current struct {
	StationID string    `json:"stationId"`
	Location  string    `json:"location"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  units.Decimal `json:"altitude"`
	Time      time.Time `json:"time"`

	Precipitation    units.Decimal `json:"precipitation"`
	MaxWindSpeed     units.Decimal `json:"maxWindSpeed"`
	MeanWindSpeed    units.Decimal `json:"meanWindSpeed"`
	WindDirection    units.Decimal `json:"windDirection"`
	MaxGustDirection units.Decimal `json:"maxGustDirection"`
	Humidity         units.Decimal `json:"humidity"`
	Temperature      units.Decimal `json:"temperature"`
	MaxTemperature   units.Decimal `json:"maxTemperature"`
	MinTemperature   units.Decimal `json:"minTemperature"`
	Pressure         units.Decimal `json:"pressure"`
	SeaLevelPressure units.Decimal `json:"seaLevelPressure"`
	SnowDepth        units.Decimal `json:"snowDepth"`
}

// FieldLabels maps the current-observation JSON field names to the
// human-readable variable labels shown by dashboards.
var FieldLabels = map[string]string{
	"precipitation":    "Precipitación (mm)",
	"maxWindSpeed":     "Velocidad máxima (m/s)",
	"meanWindSpeed":    "Velocidad media (m/s)",
	"windDirection":    "Dirección media del viento (º)",
	"maxGustDirection": "Dirección racha máxima (º)",
	"humidity":         "Humedad relativa (%)",
	"temperature":      "Temperatura (ºC)",
	"maxTemperature":   "Temperatura máxima (ºC)",
	"minTemperature":   "Temperatura mínima (ºC)",
	"pressure":         "Presión absoluta (hPa)",
	"seaLevelPressure": "Presión al nivel del mar (hPa)",
	"snowDepth":        "Espesor de nieve (cm)",
}
