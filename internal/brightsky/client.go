package brightsky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dwd-connect/internal/weather"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Bright Sky API.
	DefaultBaseURL = "https://api.brightsky.dev"
	// DefaultRequestsPerSecond is the number of API requests allowed per second.
	DefaultRequestsPerSecond = 5
	// DefaultBurst is the burst allowance for the rate limiter.
	DefaultBurst = 1
	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client fetches hourly weather from the Bright Sky API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	// OnProgress, when set, is called after every finished coordinate request.
	OnProgress func(done, total int, coord Coordinate)
}

// NewClient creates a new Bright Sky client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL: opts.BaseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:  logger,
	}
}

// GetWeather fetches the raw payload for one coordinate between start and end.
// start and end are passed through as given (dates or ISO timestamps).
func (c *Client) GetWeather(ctx context.Context, coord Coordinate, start, end string) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("rate limiter error: %w", err)
	}

	values := url.Values{}
	values.Set("date", start)
	values.Set("last_date", end)
	values.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	u := fmt.Sprintf("%s/weather?%s", c.baseURL, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("API error for %s: %w", coord, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("API error for %s: %w", coord, &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("failed to decode response for %s: %w", coord, err)
	}
	return payload, nil
}

// FetchRows requests every coordinate for the period and returns the rows of
// the requested observation type, in coordinate order. The first failing
// request aborts the fetch.
func (c *Client) FetchRows(ctx context.Context, coords []Coordinate, start, end string, kind ObservationType) ([]weather.Row, error) {
	if _, ok := sourceTypes[kind]; !ok {
		return nil, &InvalidObservationTypeError{Value: string(kind)}
	}

	c.logger.Info().Str("from", start).Str("to", end).Int("coordinates", len(coords)).Msg("retrieving data for period")

	var rows []weather.Row
	for i, coord := range coords {
		resp, err := c.GetWeather(ctx, coord, start, end)
		if err != nil {
			return nil, err
		}

		entries, err := FilterByObservationType(kind, resp)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			row, err := ExtractRow(coord, entry)
			if err != nil {
				return nil, fmt.Errorf("coordinate %s: %w", coord, err)
			}
			rows = append(rows, row)
		}

		c.logger.Debug().Stringer("coordinate", coord).Int("entries", len(entries)).Msg("fetched coordinate")
		if c.OnProgress != nil {
			c.OnProgress(i+1, len(coords), coord)
		}
	}
	return rows, nil
}
