package timerange

import "time"

const (
	// ForecastLayout is the minute-precision format used for forecast windows.
	ForecastLayout = "2006-01-02T15:04"
	// ForecastLookback covers recent hours that are still only published as forecasts.
	ForecastLookback = 3 * time.Hour
	// ForecastHorizonDays is how far ahead forecasts are requested.
	ForecastHorizonDays = 5
	// ForecastHorizonSlack keeps the last forecast hour from being cut off.
	ForecastHorizonSlack = time.Hour
	// ObservationLookbackDays is the default observation start relative to today.
	ObservationLookbackDays = 2
)

// ForecastStart returns now minus ForecastLookback in ForecastLayout (UTC).
func ForecastStart(now time.Time) string {
	return now.UTC().Add(-ForecastLookback).Format(ForecastLayout)
}

// ForecastEnd returns now plus the forecast horizon in ForecastLayout (UTC).
func ForecastEnd(now time.Time) string {
	return now.UTC().AddDate(0, 0, ForecastHorizonDays).Add(ForecastHorizonSlack).Format(ForecastLayout)
}

// TwoDaysAgo returns the calendar date ObservationLookbackDays before now.
func TwoDaysAgo(now time.Time) string {
	return now.UTC().AddDate(0, 0, -ObservationLookbackDays).Format(DateLayout)
}

// ForecastWindow computes the forecast query window from a clock. The clock
// is read on every call.
type ForecastWindow struct {
	Now func() time.Time
}

// NewForecastWindow returns a window driven by the wall clock.
func NewForecastWindow() ForecastWindow {
	return ForecastWindow{Now: time.Now}
}

// Start returns the window's lower bound.
func (w ForecastWindow) Start() string {
	return ForecastStart(w.now())
}

// End returns the window's upper bound.
func (w ForecastWindow) End() string {
	return ForecastEnd(w.now())
}

func (w ForecastWindow) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}
