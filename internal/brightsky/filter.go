package brightsky

import (
	"fmt"
	"time"

	"dwd-connect/internal/weather"
)

// ObservationType selects which entries of a response are kept.
type ObservationType string

const (
	// Observed keeps measured values, both current and historical.
	Observed ObservationType = "observed"
	// Forecast keeps model forecasts only.
	Forecast ObservationType = "forecast"
)

// sourceTypes maps an ObservationType to the upstream source kinds it covers.
var sourceTypes = map[ObservationType][]string{
	Observed: {"current", "historical"},
	Forecast: {"forecast"},
}

// InvalidObservationTypeError is returned for anything other than observed or forecast.
type InvalidObservationTypeError struct {
	Value string
}

func (e *InvalidObservationTypeError) Error() string {
	return "allowed observation types are: observed, forecast"
}

// ParseObservationType validates a user supplied observation type.
func ParseObservationType(s string) (ObservationType, error) {
	kind := ObservationType(s)
	if _, ok := sourceTypes[kind]; !ok {
		return "", &InvalidObservationTypeError{Value: s}
	}
	return kind, nil
}

// FilterByObservationType returns the entries of resp whose source is of the
// requested kind, in payload order. Entries pointing at a source id that is
// not listed in resp.Sources are dropped.
func FilterByObservationType(kind ObservationType, resp Response) ([]Entry, error) {
	allowed, ok := sourceTypes[kind]
	if !ok {
		return nil, &InvalidObservationTypeError{Value: string(kind)}
	}

	valid := make(map[int]bool)
	for _, src := range resp.Sources {
		for _, t := range allowed {
			if src.ObservationType == t {
				valid[src.ID] = true
			}
		}
	}

	entries := make([]Entry, 0, len(resp.Weather))
	for _, entry := range resp.Weather {
		if valid[entry.SourceID] {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ExtractRow converts an entry for coord into a weather.Row with the
// timestamp normalized to UTC.
func ExtractRow(coord Coordinate, entry Entry) (weather.Row, error) {
	ts, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil {
		return weather.Row{}, fmt.Errorf("invalid timestamp %q: %w", entry.Timestamp, err)
	}
	return weather.Row{
		Timestamp:        ts.UTC(),
		Lat:              coord.Lat,
		Lon:              coord.Lon,
		WindDirection:    weather.FromPtr(entry.WindDirection),
		WindSpeed:        weather.FromPtr(entry.WindSpeed),
		Precipitation:    weather.FromPtr(entry.Precipitation),
		Temperature:      weather.FromPtr(entry.Temperature),
		RelativeHumidity: weather.FromPtr(entry.RelativeHumidity),
		CloudCover:       weather.FromPtr(entry.CloudCover),
		PressureMSL:      weather.FromPtr(entry.PressureMSL),
		Sunshine:         weather.FromPtr(entry.Sunshine),
	}, nil
}
