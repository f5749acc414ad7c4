package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"dwd-connect/internal/storage"
	"dwd-connect/internal/weather"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConn is a testify mock of storage.Conn.
type MockConn struct {
	mock.Mock
}

func (m *MockConn) TableMetadata(ctx context.Context, schema, table string) (storage.TableMetadata, error) {
	args := m.Called(ctx, schema, table)
	return args.Get(0).(storage.TableMetadata), args.Error(1)
}

func (m *MockConn) TableExists(ctx context.Context, schema, table string) (bool, error) {
	args := m.Called(ctx, schema, table)
	return args.Bool(0), args.Error(1)
}

func (m *MockConn) Insert(ctx context.Context, schema, table string, columns []string, rows []weather.Row) (int, error) {
	args := m.Called(ctx, schema, table, columns, rows)
	return args.Int(0), args.Error(1)
}

func (m *MockConn) Truncate(ctx context.Context, schema, table string) error {
	return m.Called(ctx, schema, table).Error(0)
}

func (m *MockConn) Compact(ctx context.Context, schema, table string) error {
	return m.Called(ctx, schema, table).Error(0)
}

func (m *MockConn) Close() error {
	return m.Called().Error(0)
}

// countingConnector hands out the same mock and counts sessions.
type countingConnector struct {
	conn  *MockConn
	opens int
}

func (c *countingConnector) Open(context.Context) (storage.Conn, error) {
	c.opens++
	return c.conn, nil
}

const (
	schema = "fairq_raw"
	table  = "dwd_observations"
)

var (
	keyed = storage.TableMetadata{
		Engine:     storage.EngineReplacingMergeTree,
		KeyColumns: []string{weather.ColumnDateTime, weather.ColumnLat, weather.ColumnLon},
	}
	anyArg = mock.Anything
)

func rowAt(hour int, lat, lon float64) weather.Row {
	return weather.Row{
		Timestamp:   time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC),
		Lat:         lat,
		Lon:         lon,
		Temperature: optional.Some(float64(hour)),
	}
}

func setup() (*Loader, *MockConn, *countingConnector) {
	conn := new(MockConn)
	conn.On("Close").Return(nil)
	connector := &countingConnector{conn: conn}
	return New(connector, zerolog.Nop()), conn, connector
}

func request(mode Mode, rows ...weather.Row) Request {
	return Request{Schema: schema, Table: table, Mode: mode, Columns: weather.ObservationColumns, Rows: rows}
}

func TestLoad_Replace(t *testing.T) {
	l, conn, connector := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0), rowAt(1, 52.3, 13.0)}

	conn.On("TableMetadata", anyArg, schema, table).Return(keyed, nil).Twice()
	conn.On("Insert", anyArg, schema, table, weather.ObservationColumns, rows).Return(2, nil).Once()
	conn.On("Compact", anyArg, schema, table).Return(nil).Once()
	conn.On("TableExists", anyArg, schema, table+"_processed").Return(true, nil).Once()
	conn.On("Compact", anyArg, schema, table+"_processed").Return(nil).Once()

	require.NoError(t, l.Load(context.Background(), request(ModeReplace, rows...)))

	conn.AssertExpectations(t)
	// engine, keys, insert, compact, exists, compact processed
	assert.Equal(t, 6, connector.opens)
	conn.AssertNumberOfCalls(t, "Close", 6)
}

func TestLoad_ReplaceWithoutProcessedTable(t *testing.T) {
	l, conn, _ := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0)}

	conn.On("TableMetadata", anyArg, schema, table).Return(keyed, nil)
	conn.On("Insert", anyArg, schema, table, weather.ObservationColumns, rows).Return(1, nil)
	conn.On("Compact", anyArg, schema, table).Return(nil)
	conn.On("TableExists", anyArg, schema, table+"_processed").Return(false, nil)

	require.NoError(t, l.Load(context.Background(), request(ModeReplace, rows...)))

	conn.AssertNotCalled(t, "Compact", anyArg, schema, table+"_processed")
	conn.AssertNumberOfCalls(t, "Compact", 1)
}

func TestLoad_ReplaceDuplicateKeysWritesNothing(t *testing.T) {
	l, conn, _ := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0), rowAt(0, 52.3, 13.0), rowAt(1, 52.3, 13.0)}

	conn.On("TableMetadata", anyArg, schema, table).Return(keyed, nil)

	err := l.Load(context.Background(), request(ModeReplace, rows...))

	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, keyed.KeyColumns, dup.KeyColumns)
	assert.Equal(t, []string{"2024-01-01 00:00:00, 52.3, 13"}, dup.Keys)
	assert.Equal(t, 2, dup.Rows)

	conn.AssertNotCalled(t, "Insert", anyArg, anyArg, anyArg, anyArg, anyArg)
	conn.AssertNotCalled(t, "Compact", anyArg, anyArg, anyArg)
	conn.AssertNotCalled(t, "Truncate", anyArg, anyArg, anyArg)
}

func TestLoad_ReplaceUnsupportedEngine(t *testing.T) {
	l, conn, connector := setup()

	conn.On("TableMetadata", anyArg, schema, table).
		Return(storage.TableMetadata{Engine: "MergeTree", KeyColumns: keyed.KeyColumns}, nil).Once()

	err := l.Load(context.Background(), request(ModeReplace, rowAt(0, 52.3, 13.0)))

	var unsupported *UnsupportedEngineError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, storage.Engine("MergeTree"), unsupported.Engine)
	assert.Contains(t, err.Error(), "fairq_raw.dwd_observations")
	assert.Equal(t, 1, connector.opens)
	conn.AssertNotCalled(t, "Insert", anyArg, anyArg, anyArg, anyArg, anyArg)
}

func TestLoad_ReplaceEmptyBatchStillValidates(t *testing.T) {
	l, conn, connector := setup()

	conn.On("TableMetadata", anyArg, schema, table).Return(keyed, nil).Twice()

	require.NoError(t, l.Load(context.Background(), request(ModeReplace)))

	conn.AssertExpectations(t)
	assert.Equal(t, 2, connector.opens)
	conn.AssertNotCalled(t, "Insert", anyArg, anyArg, anyArg, anyArg, anyArg)
	conn.AssertNotCalled(t, "Compact", anyArg, anyArg, anyArg)
}

func TestLoad_Truncate(t *testing.T) {
	l, conn, _ := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0), rowAt(0, 52.3, 13.0)}

	var calls []string
	conn.On("Truncate", anyArg, schema, table).Return(nil).Run(func(mock.Arguments) { calls = append(calls, "truncate") })
	conn.On("Insert", anyArg, schema, table, weather.ObservationColumns, rows).Return(2, nil).Run(func(mock.Arguments) { calls = append(calls, "insert") })

	require.NoError(t, l.Load(context.Background(), request(ModeTruncate, rows...)))

	assert.Equal(t, []string{"truncate", "insert"}, calls)
	conn.AssertNotCalled(t, "TableMetadata", anyArg, anyArg, anyArg)
	conn.AssertNotCalled(t, "Compact", anyArg, anyArg, anyArg)
}

func TestLoad_TruncateEmptyBatch(t *testing.T) {
	l, conn, _ := setup()

	conn.On("Truncate", anyArg, schema, table).Return(nil).Once()

	require.NoError(t, l.Load(context.Background(), request(ModeTruncate)))

	conn.AssertExpectations(t)
	conn.AssertNotCalled(t, "Insert", anyArg, anyArg, anyArg, anyArg, anyArg)
}

func TestLoad_Insert(t *testing.T) {
	l, conn, connector := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0), rowAt(0, 52.3, 13.0)}

	conn.On("Insert", anyArg, schema, table, weather.ObservationColumns, rows).Return(2, nil).Once()

	require.NoError(t, l.Load(context.Background(), request(ModeInsert, rows...)))

	conn.AssertExpectations(t)
	assert.Equal(t, 1, connector.opens)
	conn.AssertNotCalled(t, "TableMetadata", anyArg, anyArg, anyArg)
	conn.AssertNotCalled(t, "Compact", anyArg, anyArg, anyArg)
}

func TestLoad_InsertEmptyBatchTouchesNothing(t *testing.T) {
	l, _, connector := setup()

	require.NoError(t, l.Load(context.Background(), request(ModeInsert)))
	assert.Zero(t, connector.opens)
}

func TestLoad_InvalidMode(t *testing.T) {
	l, _, connector := setup()

	err := l.Load(context.Background(), request("upsert", rowAt(0, 1, 1)))

	var invalid *InvalidModeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "upsert", invalid.Mode)
	assert.Zero(t, connector.opens)
}

func TestLoad_InsertFailureSkipsCompaction(t *testing.T) {
	l, conn, _ := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0)}
	errInsert := errors.New("connection reset")

	conn.On("TableMetadata", anyArg, schema, table).Return(keyed, nil)
	conn.On("Insert", anyArg, schema, table, weather.ObservationColumns, rows).Return(0, errInsert)

	err := l.Load(context.Background(), request(ModeReplace, rows...))
	assert.ErrorIs(t, err, errInsert)
	conn.AssertNotCalled(t, "Compact", anyArg, anyArg, anyArg)
}

func TestLoad_CompactionFailureIsReported(t *testing.T) {
	l, conn, _ := setup()
	rows := []weather.Row{rowAt(0, 52.3, 13.0)}
	errOptimize := errors.New("too many parts")

	conn.On("TableMetadata", anyArg, schema, table).Return(keyed, nil)
	conn.On("Insert", anyArg, schema, table, weather.ObservationColumns, rows).Return(1, nil)
	conn.On("Compact", anyArg, schema, table).Return(errOptimize)

	err := l.Load(context.Background(), request(ModeReplace, rows...))
	assert.ErrorIs(t, err, errOptimize)
	conn.AssertNotCalled(t, "TableExists", anyArg, anyArg, anyArg)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMode("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "allowed modes are: insert, replace, truncate")
}

func TestFindDuplicates(t *testing.T) {
	keys := keyed.KeyColumns

	assert.NoError(t, FindDuplicates(keys, nil))
	assert.NoError(t, FindDuplicates(keys, []weather.Row{rowAt(0, 52.3, 13.0)}))
	assert.NoError(t, FindDuplicates(keys, []weather.Row{rowAt(0, 52.3, 13.0), rowAt(0, 52.35, 13.0)}))
	assert.NoError(t, FindDuplicates(nil, []weather.Row{rowAt(0, 52.3, 13.0), rowAt(0, 52.3, 13.0)}))

	// Rows differing only outside the key still collide.
	a, b := rowAt(0, 52.3, 13.0), rowAt(0, 52.3, 13.0)
	b.Temperature = optional.Some(-4.0)
	err := FindDuplicates(keys, []weather.Row{a, b, a})
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 3, dup.Rows)
	assert.Len(t, dup.Keys, 1)
}

func TestFindDuplicates_NullKeysCollide(t *testing.T) {
	forecastKeys := []string{weather.ColumnDateTime, weather.ColumnLat, weather.ColumnLon, weather.ColumnForecastedAt}
	rows := []weather.Row{rowAt(0, 52.3, 13.0), rowAt(0, 52.3, 13.0)}

	err := FindDuplicates(forecastKeys, rows)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"2024-01-01 00:00:00, 52.3, 13, NULL"}, dup.Keys)

	stamped := weather.WithForecastedAt(rows[:1], time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC))
	assert.NoError(t, FindDuplicates(forecastKeys, append(stamped, rows[1])))
}

func TestFindDuplicates_UnknownKeyColumn(t *testing.T) {
	err := FindDuplicates([]string{"station_id"}, []weather.Row{rowAt(0, 1, 1), rowAt(1, 1, 1)})
	var unknown *weather.UnknownColumnError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "station_id", unknown.Column)
}

func TestDuplicateKeyError_TruncatesKeyList(t *testing.T) {
	err := &DuplicateKeyError{KeyColumns: []string{"date_time"}, Rows: 30}
	for i := 0; i < 15; i++ {
		err.Keys = append(err.Keys, fmt.Sprintf("key-%02d", i))
	}

	msg := err.Error()
	assert.Contains(t, msg, "date_time")
	assert.Contains(t, msg, "key-09")
	assert.NotContains(t, msg, "key-10")
	assert.True(t, strings.HasSuffix(msg, "... and 5 more"))
}
