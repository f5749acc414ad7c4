package weather

import (
	"time"

	"github.com/moznion/go-optional"
)

// Column names shared by the observation and forecast tables.
const (
	ColumnDateTime         = "date_time"
	ColumnLat              = "lat"
	ColumnLon              = "lon"
	ColumnWindDirection    = "wind_direction"
	ColumnWindSpeed        = "wind_speed"
	ColumnPrecipitation    = "precipitation"
	ColumnTemperature      = "temperature"
	ColumnRelativeHumidity = "relative_humidity"
	ColumnCloudCover       = "cloud_cover"
	ColumnPressureMSL      = "pressure_msl"
	ColumnSunshine         = "sunshine"
	ColumnForecastedAt     = "date_time_forecast"
)

// ObservationColumns is the column layout of the observation table.
var ObservationColumns = []string{
	ColumnDateTime,
	ColumnLat,
	ColumnLon,
	ColumnWindDirection,
	ColumnWindSpeed,
	ColumnPrecipitation,
	ColumnTemperature,
	ColumnRelativeHumidity,
	ColumnCloudCover,
	ColumnPressureMSL,
	ColumnSunshine,
}

// ForecastColumns is the column layout of the forecast history table.
var ForecastColumns = append(append([]string{}, ObservationColumns...), ColumnForecastedAt)

// Row is one hourly weather record for one grid coordinate. Measurements
// the source did not report are None.
type Row struct {
	Timestamp        time.Time
	Lat              float64
	Lon              float64
	WindDirection    optional.Option[float64]
	WindSpeed        optional.Option[float64]
	Precipitation    optional.Option[float64]
	Temperature      optional.Option[float64]
	RelativeHumidity optional.Option[float64]
	CloudCover       optional.Option[float64]
	PressureMSL      optional.Option[float64]
	Sunshine         optional.Option[float64]

	// ForecastedAt is set on forecast rows once they are historized.
	ForecastedAt optional.Option[time.Time]
}

// Value returns the driver value stored under column. Missing measurements
// come back as nil so they are written as NULL. ok is false for unknown columns.
func (r Row) Value(column string) (value any, ok bool) {
	switch column {
	case ColumnDateTime:
		return r.Timestamp, true
	case ColumnLat:
		return r.Lat, true
	case ColumnLon:
		return r.Lon, true
	case ColumnWindDirection:
		return nullable(r.WindDirection), true
	case ColumnWindSpeed:
		return nullable(r.WindSpeed), true
	case ColumnPrecipitation:
		return nullable(r.Precipitation), true
	case ColumnTemperature:
		return nullable(r.Temperature), true
	case ColumnRelativeHumidity:
		return nullable(r.RelativeHumidity), true
	case ColumnCloudCover:
		return nullable(r.CloudCover), true
	case ColumnPressureMSL:
		return nullable(r.PressureMSL), true
	case ColumnSunshine:
		return nullable(r.Sunshine), true
	case ColumnForecastedAt:
		return nullable(r.ForecastedAt), true
	}
	return nil, false
}

// Values returns the driver values for columns in order.
func (r Row) Values(columns []string) ([]any, error) {
	values := make([]any, len(columns))
	for i, column := range columns {
		v, ok := r.Value(column)
		if !ok {
			return nil, &UnknownColumnError{Column: column}
		}
		values[i] = v
	}
	return values, nil
}

// UnknownColumnError is returned when a column has no Row field behind it.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return "unknown weather column: " + e.Column
}

// WithForecastedAt stamps every row with the time the forecast was taken.
func WithForecastedAt(rows []Row, at time.Time) []Row {
	stamped := make([]Row, len(rows))
	for i, row := range rows {
		row.ForecastedAt = optional.Some(at)
		stamped[i] = row
	}
	return stamped
}

func nullable[T any](o optional.Option[T]) any {
	if o.IsNone() {
		return nil
	}
	return o.Unwrap()
}

// FromPtr converts a decoded JSON pointer into an Option.
func FromPtr[T any](v *T) optional.Option[T] {
	if v == nil {
		return optional.None[T]()
	}
	return optional.Some(*v)
}
