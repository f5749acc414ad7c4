package brightsky

import "fmt"

// Coordinate is one grid point.
type Coordinate struct {
	Lat float64
	Lon float64
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%g, %g)", c.Lat, c.Lon)
}

// Source describes a station or model run that produced weather entries.
type Source struct {
	ID              int    `json:"id"`
	ObservationType string `json:"observation_type"`
}

// Entry is one hourly record of the /weather endpoint. Measurements the
// source did not report are null in the payload and nil here.
type Entry struct {
	SourceID         int      `json:"source_id"`
	Timestamp        string   `json:"timestamp"`
	WindDirection    *float64 `json:"wind_direction"`
	WindSpeed        *float64 `json:"wind_speed"`
	Precipitation    *float64 `json:"precipitation"`
	Temperature      *float64 `json:"temperature"`
	RelativeHumidity *float64 `json:"relative_humidity"`
	CloudCover       *float64 `json:"cloud_cover"`
	PressureMSL      *float64 `json:"pressure_msl"`
	Sunshine         *float64 `json:"sunshine"`
}

// Response is the decoded /weather payload.
type Response struct {
	Weather []Entry  `json:"weather"`
	Sources []Source `json:"sources"`
}
