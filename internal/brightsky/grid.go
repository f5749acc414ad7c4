package brightsky

import (
	"fmt"
	"math"
)

// Grid is a rectangle of coordinates spaced Step degrees apart.
type Grid struct {
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
	Step   float64 `yaml:"step"`
}

// BerlinGrid covers Berlin at roughly 5 km spacing.
var BerlinGrid = Grid{LatMin: 52.3, LatMax: 52.7, LonMin: 13.0, LonMax: 13.8, Step: 0.05}

// Validate checks that the grid describes a non-empty rectangle.
func (g Grid) Validate() error {
	if g.Step <= 0 {
		return fmt.Errorf("grid step must be positive, got %g", g.Step)
	}
	if g.LatMax <= g.LatMin {
		return fmt.Errorf("grid lat_max (%g) must be greater than lat_min (%g)", g.LatMax, g.LatMin)
	}
	if g.LonMax <= g.LonMin {
		return fmt.Errorf("grid lon_max (%g) must be greater than lon_min (%g)", g.LonMax, g.LonMin)
	}
	return nil
}

// Coordinates enumerates the grid, latitude major.
func (g Grid) Coordinates() []Coordinate {
	return GridCoordinates(g.LatMin, g.LatMax, g.LonMin, g.LonMax, g.Step)
}

// GridCoordinates enumerates min + i*step for each axis while i < ceil((max-min)/step),
// rounding every value to two decimals. Floating point error in the quotient
// can add a point at max itself; that point is kept.
func GridCoordinates(latMin, latMax, lonMin, lonMax, step float64) []Coordinate {
	lats := axis(latMin, latMax, step)
	lons := axis(lonMin, lonMax, step)

	coords := make([]Coordinate, 0, len(lats)*len(lons))
	for _, lat := range lats {
		for _, lon := range lons {
			coords = append(coords, Coordinate{Lat: lat, Lon: lon})
		}
	}
	return coords
}

func axis(lo, hi, step float64) []float64 {
	if step <= 0 || hi <= lo {
		return nil
	}
	n := int(math.Ceil((hi - lo) / step))
	values := make([]float64, n)
	for i := range values {
		values[i] = round2(lo + float64(i)*step)
	}
	return values
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
