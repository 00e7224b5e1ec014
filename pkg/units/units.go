// Package units converts the AEMET OpenData wire representations of
// coordinates and numeric values into standard Go types.
package units

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TracePrecipitation is the sentinel AEMET uses for a trace amount of
// precipitation ("inapreciable"). It is coerced to 0.0.
const TracePrecipitation = "Ip"

// FormatError reports a coordinate string that does not match the
// fixed-width sexagesimal format.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid coordinate %q: %s", e.Input, e.Reason)
}

// ParseCoordinate converts a fixed-width sexagesimal coordinate string into
// signed decimal degrees. The format is two-digit degrees, two-digit minutes,
// seconds (two digits for latitudes, three for longitudes) and a trailing
// hemisphere letter, e.g. "403000N" or "0023015W". South and west are
// negative.
func ParseCoordinate(coord string) (float64, error) {
	if len(coord) != 7 && len(coord) != 8 {
		return 0, &FormatError{Input: coord, Reason: "must be 7 or 8 characters"}
	}

	hemisphere := coord[len(coord)-1]
	digits := coord[:len(coord)-1]

	degrees, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0, &FormatError{Input: coord, Reason: "non-numeric degrees"}
	}
	minutes, err := strconv.Atoi(digits[2:4])
	if err != nil {
		return 0, &FormatError{Input: coord, Reason: "non-numeric minutes"}
	}
	seconds, err := strconv.Atoi(digits[4:])
	if err != nil {
		return 0, &FormatError{Input: coord, Reason: "non-numeric seconds"}
	}

	decimal := float64(degrees) + float64(minutes)/60 + float64(seconds)/3600

	switch hemisphere {
	case 'N', 'E':
		return decimal, nil
	case 'S', 'W':
		return -decimal, nil
	default:
		return 0, &FormatError{Input: coord, Reason: "unknown hemisphere"}
	}
}

// ParseDecimal converts a locale-formatted decimal string (comma as decimal
// separator) into a float64. The precipitation trace sentinel maps to 0.0.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == TracePrecipitation {
		return 0.0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// Decimal is an optional float64 that decodes the numeric shapes AEMET
// emits: JSON numbers, comma-decimal strings, the trace sentinel and empty
// strings (absent value).
type Decimal struct {
	Float64 float64
	Valid   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	d.Float64, d.Valid = 0, false

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		v, err := ParseDecimal(s)
		if err != nil {
			return fmt.Errorf("parsing decimal %q: %w", s, err)
		}
		d.Float64, d.Valid = v, true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d.Float64, d.Valid = v, true
	return nil
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Float64)
}
