package timerange

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar date format accepted by Split.
	DateLayout = "2006-01-02"
	// TimestampLayout is the format of the range bounds handed to the API.
	TimestampLayout = "2006-01-02 15:04:05"
	// ChunkThresholdDays is the span length from which requests are split into yearly chunks.
	ChunkThresholdDays = 365
)

// DateRange is an inclusive request window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Format returns both bounds in TimestampLayout.
func (r DateRange) Format() (string, string) {
	return r.Start.Format(TimestampLayout), r.End.Format(TimestampLayout)
}

func (r DateRange) String() string {
	start, end := r.Format()
	return start + " - " + end
}

// InvalidRangeError is returned when a date span cannot be split.
type InvalidRangeError struct {
	Start   string
	End     string
	Message string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s to %s: %s", e.Start, e.End, e.Message)
}

// Split parses two YYYY-MM-DD dates and splits the span between them into
// chunks of at most one year. An empty end means today (UTC).
func Split(start, end string) ([]DateRange, error) {
	if end == "" {
		end = time.Now().UTC().Format(DateLayout)
	}

	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, &InvalidRangeError{Start: start, End: end, Message: "start date must be in YYYY-MM-DD format"}
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, &InvalidRangeError{Start: start, End: end, Message: "end date must be in YYYY-MM-DD format"}
	}
	return SplitDates(from, to)
}

// SplitDates splits [start, end] into contiguous ranges. Spans shorter than
// ChunkThresholdDays come back as a single range; longer spans are walked one
// calendar year at a time from start, with a trailing range up to end.
// Every range starts at 00:00:00 and ends at 23:59:59.
func SplitDates(start, end time.Time) ([]DateRange, error) {
	from := startOfDay(start)
	to := startOfDay(end)
	if from.After(to) {
		return nil, &InvalidRangeError{
			Start:   from.Format(DateLayout),
			End:     to.Format(DateLayout),
			Message: "start date must not be after end date",
		}
	}

	if daysBetween(from, to) < ChunkThresholdDays {
		return []DateRange{{Start: from, End: endOfDay(to)}}, nil
	}

	var ranges []DateRange
	cursor := from
	for next := addYears(cursor, 1); !next.After(to); next = addYears(cursor, 1) {
		ranges = append(ranges, DateRange{Start: cursor, End: endOfDay(next.AddDate(0, 0, -1))})
		cursor = next
	}
	ranges = append(ranges, DateRange{Start: cursor, End: endOfDay(to)})
	return ranges, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// daysBetween counts calendar days, so DST shifts in from's location do not
// shorten the span.
func daysBetween(from, to time.Time) int {
	return int(calendarDay(to).Sub(calendarDay(from)).Hours() / 24)
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addYears moves t by whole calendar years. Feb 29 lands on Feb 28 in
// non-leap years instead of rolling over into March.
func addYears(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	y += years
	if m == time.February && d == 29 && !isLeap(y) {
		d = 28
	}
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
