package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"dwd-connect/internal/brightsky"
	"dwd-connect/internal/config"
	"dwd-connect/internal/loader"
	"dwd-connect/internal/timerange"
	"dwd-connect/internal/weather"
)

type rowFetcher interface {
	FetchRows(ctx context.Context, coords []brightsky.Coordinate, start, end string, kind brightsky.ObservationType) ([]weather.Row, error)
}

type batchLoader interface {
	Load(ctx context.Context, req loader.Request) error
}

// fetchObservations requests every range for all coordinates and concatenates the rows.
func fetchObservations(ctx context.Context, f rowFetcher, coords []brightsky.Coordinate, ranges []timerange.DateRange, out io.Writer) ([]weather.Row, error) {
	var rows []weather.Row
	for i, r := range ranges {
		start, end := r.Format()
		fmt.Fprintf(out, "📡 [%d/%d] Retrieving data for period: %s until %s\n", i+1, len(ranges), start, end)

		chunk, err := f.FetchRows(ctx, coords, start, end, brightsky.Observed)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch observations for %s: %w", r, err)
		}
		rows = append(rows, chunk...)
	}
	return rows, nil
}

// fetchForecasts requests the forecast window around now and stamps every row
// with the time the snapshot was taken (UTC, second precision).
func fetchForecasts(ctx context.Context, f rowFetcher, coords []brightsky.Coordinate, now func() time.Time, out io.Writer) ([]weather.Row, error) {
	window := timerange.ForecastWindow{Now: now}
	start, end := window.Start(), window.End()
	fmt.Fprintf(out, "📡 Retrieving forecasts for period: %s until %s\n", start, end)

	rows, err := f.FetchRows(ctx, coords, start, end, brightsky.Forecast)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecasts: %w", err)
	}

	takenAt := now().UTC().Truncate(time.Second)
	return weather.WithForecastedAt(rows, takenAt), nil
}

// loadRows sends rows to the target table.
func loadRows(ctx context.Context, l batchLoader, target config.Target, columns []string, rows []weather.Row, out io.Writer) error {
	fmt.Fprintf(out, "💾 Sending %d rows to %s (mode: %s)...\n", len(rows), targetName(target), target.Mode)
	err := l.Load(ctx, loader.Request{
		Schema:  target.Schema,
		Table:   target.Table,
		Mode:    loader.Mode(target.Mode),
		Columns: columns,
		Rows:    rows,
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", targetName(target), err)
	}
	return nil
}

// progressPrinter reports every 10% of the coordinates, or every coordinate when detailed is set.
func progressPrinter(out io.Writer, detailed bool) func(done, total int, coord brightsky.Coordinate) {
	return func(done, total int, coord brightsky.Coordinate) {
		if detailed {
			fmt.Fprintf(out, "   📍 [%d/%d] %s\n", done, total, coord)
			return
		}
		interval := total / 10
		if interval < 1 {
			interval = 1
		}
		if done%interval == 0 || done == total {
			fmt.Fprintf(out, "📊 Progress: %d%% (%d/%d coordinates)\n", done*100/total, done, total)
		}
	}
}
