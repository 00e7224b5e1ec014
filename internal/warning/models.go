// Package warning fetches and decodes AEMET CAP weather-warning bundles. A
// bundle is a tar archive of CAP 1.2 XML documents, one per active bulletin,
// each carrying parallel-language info blocks and one or more alert polygons.
package warning

import "time"

// Severity levels in ascending order of threat. Green bulletins mean no
// actual warning and are dropped during parsing.
const (
	SeverityGreen  = "verde"
	SeverityYellow = "amarillo"
	SeverityOrange = "naranja"
	SeverityRed    = "rojo"
)

// severityLevels is the ordinal encoding used for sorting and map colors.
var severityLevels = map[string]int{
	SeverityYellow: 1,
	SeverityOrange: 2,
	SeverityRed:    3,
}

// SeverityLevel returns the ordinal level of a severity name, 0 when
// unknown.
func SeverityLevel(severity string) int {
	return severityLevels[severity]
}

// Point is one polygon vertex.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Warning is one alert for one polygon. Timestamps are naive Madrid civil
// time: wall-clock values converted from the bulletin's UTC instants and
// re-anchored in UTC so they compare and sort as local time.
type Warning struct {
	Language    string    `json:"language"`
	Area        string    `json:"area"`
	Headline    string    `json:"headline"`
	Polygon     []Point   `json:"polygon"`
	Severity    string    `json:"severity"`
	Level       int       `json:"level"`
	Type        string    `json:"type"`
	Probability string    `json:"probability"`
	Certainty   string    `json:"certainty"`
	Description string    `json:"description"`
	Effective   time.Time `json:"effective"`
	Onset       time.Time `json:"onset"`
	Expires     time.Time `json:"expires"`
}

// GroupByArea indexes warnings by area name, preserving input order within
// each group.
func GroupByArea(warnings []Warning) map[string][]Warning {
	groups := make(map[string][]Warning)
	for _, w := range warnings {
		groups[w.Area] = append(groups[w.Area], w)
	}
	return groups
}

// GroupByType indexes warnings by warning type, preserving input order
// within each group.
func GroupByType(warnings []Warning) map[string][]Warning {
	groups := make(map[string][]Warning)
	for _, w := range warnings {
		groups[w.Type] = append(groups[w.Type], w)
	}
	return groups
}
