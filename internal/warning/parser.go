package warning

import (
	"archive/tar"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
)

// The bulletins carry parallel-language blocks; only the Spanish one is
// kept.
const localeTag = "es-ES"

var madrid = mustLoadLocation("Europe/Madrid")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Parser decodes CAP 1.2 archives into warning records. Documents or blocks
// that fail to parse are skipped with a diagnostic; one bad bulletin never
// aborts the rest of the bundle.
type Parser struct {
	logger zerolog.Logger
}

// NewParser creates a new CAP archive parser.
func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger}
}

// capAlert mirrors the CAP 1.2 document structure
// (urn:oasis:names:tc:emergency:cap:1.2).
type capAlert struct {
	XMLName    xml.Name  `xml:"alert"`
	Identifier string    `xml:"identifier"`
	Infos      []capInfo `xml:"info"`
}

type capInfo struct {
	Language    string         `xml:"language"`
	Certainty   string         `xml:"certainty"`
	Headline    string         `xml:"headline"`
	Description string         `xml:"description"`
	Effective   string         `xml:"effective"`
	Onset       string         `xml:"onset"`
	Expires     string         `xml:"expires"`
	Parameters  []capParameter `xml:"parameter"`
	Area        capArea        `xml:"area"`
}

type capParameter struct {
	ValueName string `xml:"valueName"`
	Value     string `xml:"value"`
}

type capArea struct {
	Desc     string   `xml:"areaDesc"`
	Polygons []string `xml:"polygon"`
}

// ParseArchive decodes every CAP XML document inside an in-memory tar
// archive and returns the unified, deduplicated record set.
func (p *Parser) ParseArchive(archive []byte) []Warning {
	var warnings []Warning

	tr := tar.NewReader(bytes.NewReader(archive))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn().Err(err).Msg("warning archive truncated, keeping records parsed so far")
			break
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".xml") {
			continue
		}

		doc, err := io.ReadAll(tr)
		if err != nil {
			p.logger.Warn().Err(err).Str("file", hdr.Name).Msg("skipping unreadable archive member")
			continue
		}

		parsed, err := p.parseDocument(doc)
		if err != nil {
			p.logger.Warn().Err(err).Str("file", hdr.Name).Msg("skipping malformed CAP document")
			continue
		}
		warnings = append(warnings, parsed...)
	}

	return Deduplicate(warnings)
}

// parseDocument extracts the Spanish-language warnings of one CAP document,
// one record per polygon.
func (p *Parser) parseDocument(doc []byte) ([]Warning, error) {
	var alert capAlert
	if err := xml.Unmarshal(doc, &alert); err != nil {
		return nil, fmt.Errorf("decoding CAP XML: %w", err)
	}

	var warnings []Warning
	for _, info := range alert.Infos {
		if info.Language != localeTag {
			continue
		}

		parsed, err := p.parseInfo(info)
		if err != nil {
			p.logger.Warn().Err(err).Str("alert", alert.Identifier).Msg("skipping malformed info block")
			continue
		}
		warnings = append(warnings, parsed...)
	}

	return warnings, nil
}

func (p *Parser) parseInfo(info capInfo) ([]Warning, error) {
	// Severity, warning type and probability are positional: the bulletins
	// carry them as the first three parameter values.
	if len(info.Parameters) < 3 {
		return nil, fmt.Errorf("info block has %d parameters, want at least 3", len(info.Parameters))
	}

	severity := strings.TrimSpace(info.Parameters[0].Value)
	if severity == SeverityGreen {
		return nil, nil
	}

	warnType := info.Parameters[1].Value
	if idx := strings.Index(warnType, ";"); idx >= 0 {
		warnType = warnType[idx+1:]
	}
	warnType = strings.TrimSpace(warnType)

	effective, err := parseLocalTime(info.Effective)
	if err != nil {
		return nil, fmt.Errorf("effective: %w", err)
	}
	onset, err := parseLocalTime(info.Onset)
	if err != nil {
		return nil, fmt.Errorf("onset: %w", err)
	}
	expires, err := parseLocalTime(info.Expires)
	if err != nil {
		return nil, fmt.Errorf("expires: %w", err)
	}

	var warnings []Warning
	for _, raw := range info.Area.Polygons {
		polygon, err := parsePolygon(raw)
		if err != nil {
			p.logger.Warn().Err(err).Str("area", info.Area.Desc).Msg("skipping malformed polygon")
			continue
		}

		warnings = append(warnings, Warning{
			Language:    info.Language,
			Area:        info.Area.Desc,
			Headline:    info.Headline,
			Polygon:     polygon,
			Severity:    severity,
			Level:       SeverityLevel(severity),
			Type:        warnType,
			Probability: strings.TrimSpace(info.Parameters[2].Value),
			Certainty:   info.Certainty,
			Description: info.Description,
			Effective:   effective,
			Onset:       onset,
			Expires:     expires,
		})
	}

	return warnings, nil
}

// parsePolygon decodes the CAP polygon encoding: whitespace-separated
// "lat,lon" vertex pairs.
func parsePolygon(raw string) ([]Point, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, errors.New("empty polygon")
	}

	polygon := make([]Point, 0, len(fields))
	for _, pair := range fields {
		lat, lon, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("vertex %q is not a lat,lon pair", pair)
		}
		latF, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, fmt.Errorf("vertex %q: %w", pair, err)
		}
		lonF, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return nil, fmt.Errorf("vertex %q: %w", pair, err)
		}
		polygon = append(polygon, Point{Lat: latF, Lon: lonF})
	}

	return polygon, nil
}

// parseLocalTime converts a CAP timestamp to naive Madrid civil time. The
// wall clock is re-anchored in UTC so records compare as local time.
func parseLocalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}

	local := ts.In(madrid)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC), nil
}

// Deduplicate collapses records sharing the same description, severity,
// onset and expiry, keeping the first occurrence. Bulletins routinely repeat
// identical alerts across documents in one bundle.
func Deduplicate(warnings []Warning) []Warning {
	type key struct {
		description string
		severity    string
		onset       time.Time
		expires     time.Time
	}

	seen := make(map[key]bool, len(warnings))
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		k := key{w.Description, w.Severity, w.Onset, w.Expires}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}
