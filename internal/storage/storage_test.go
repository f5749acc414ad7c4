package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"dwd-connect/internal/timerange"
	"dwd-connect/internal/weather"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockConnector(t *testing.T, d dialect) (*SQLConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	connector := &SQLConnector{
		openDB:  func(context.Context) (*sql.DB, error) { return db, nil },
		dialect: d,
		logger:  zerolog.Nop(),
	}
	return connector, mock
}

func openMock(t *testing.T, d dialect) (Conn, sqlmock.Sqlmock) {
	t.Helper()
	connector, mock := newMockConnector(t, d)
	conn, err := connector.Open(context.Background())
	require.NoError(t, err)
	return conn, mock
}

func sampleRows() []weather.Row {
	return []weather.Row{
		{
			Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Lat:         52.3,
			Lon:         13.0,
			Temperature: optional.Some(1.5),
		},
		{
			Timestamp: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
			Lat:       52.3,
			Lon:       13.0,
		},
	}
}

func TestClickHouse_TableMetadata(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})

	mock.ExpectQuery("SELECT engine, sorting_key FROM system.tables WHERE database = ? AND name = ?").
		WithArgs("fairq_raw", "dwd_observations").
		WillReturnRows(sqlmock.NewRows([]string{"engine", "sorting_key"}).
			AddRow("ReplacingMergeTree", "date_time, lat, lon"))
	mock.ExpectClose()

	meta, err := conn.TableMetadata(context.Background(), "fairq_raw", "dwd_observations")
	require.NoError(t, err)
	assert.Equal(t, EngineReplacingMergeTree, meta.Engine)
	assert.Equal(t, []string{"date_time", "lat", "lon"}, meta.KeyColumns)

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouse_TableMetadataNotFound(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})

	mock.ExpectQuery("SELECT engine, sorting_key FROM system.tables WHERE database = ? AND name = ?").
		WithArgs("fairq_raw", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"engine", "sorting_key"}))

	_, err := conn.TableMetadata(context.Background(), "fairq_raw", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouse_TableExists(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})

	mock.ExpectQuery("EXISTS TABLE `fairq_raw`.`dwd_observations_processed`").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(1))
	mock.ExpectQuery("EXISTS TABLE `fairq_raw`.`dwd_forecasts_processed`").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(0))

	exists, err := conn.TableExists(context.Background(), "fairq_raw", "dwd_observations_processed")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = conn.TableExists(context.Background(), "fairq_raw", "dwd_forecasts_processed")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouse_Insert(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})
	rows := sampleRows()
	columns := []string{"date_time", "lat", "lon", "temperature"}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO `fairq_raw`.`dwd_observations` (`date_time`, `lat`, `lon`, `temperature`)")
	prep.ExpectExec().WithArgs(rows[0].Timestamp, 52.3, 13.0, 1.5).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(rows[1].Timestamp, 52.3, 13.0, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := conn.Insert(context.Background(), "fairq_raw", "dwd_observations", columns, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouse_InsertRollsBackOnRowError(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})
	rows := sampleRows()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO `s`.`t` (`date_time`)")
	prep.ExpectExec().WithArgs(rows[0].Timestamp).WillReturnError(errors.New("type mismatch"))
	mock.ExpectRollback()

	n, err := conn.Insert(context.Background(), "s", "t", []string{"date_time"}, rows)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "insert error at row 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouse_InsertUnknownColumn(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO `s`.`t` (`humidity`)")
	mock.ExpectRollback()

	_, err := conn.Insert(context.Background(), "s", "t", []string{"humidity"}, sampleRows())
	var unknown *weather.UnknownColumnError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "humidity", unknown.Column)
}

func TestClickHouse_TruncateAndCompact(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})

	mock.ExpectExec("TRUNCATE TABLE `fairq_raw`.`dwd_forecasts`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("OPTIMIZE TABLE `fairq_raw`.`dwd_forecasts` FINAL").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, conn.Truncate(context.Background(), "fairq_raw", "dwd_forecasts"))
	require.NoError(t, conn.Compact(context.Background(), "fairq_raw", "dwd_forecasts"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConn_RejectsInvalidIdentifiers(t *testing.T) {
	conn, mock := openMock(t, clickHouseDialect{})
	ctx := context.Background()

	_, err := conn.TableMetadata(ctx, "fairq_raw", "t; DROP TABLE x")
	assert.Error(t, err)
	assert.Error(t, conn.Truncate(ctx, "fairq-raw", "t"))
	_, err = conn.Insert(ctx, "s", "t", []string{"date time"}, sampleRows())
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnector_OpenPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	connector := &SQLConnector{
		openDB:  func(context.Context) (*sql.DB, error) { return db, nil },
		dialect: clickHouseDialect{},
		logger:  zerolog.Nop(),
	}

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	_, err = connector.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sqliteDialect() embeddedDialect {
	return embeddedDialect{backend: "sqlite", catalog: sqliteCatalog{}, timeLayout: timerange.TimestampLayout}
}

func TestEmbedded_TableMetadata(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		engine Engine
	}{
		{name: "keyed", keys: []string{"date_time", "lat", "lon"}, engine: EngineKeyedTable},
		{name: "heap", keys: nil, engine: EngineHeapTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := openMock(t, sqliteDialect())

			mock.ExpectQuery(`SELECT count(*) FROM "main".sqlite_master WHERE type = 'table' AND name = ?`).
				WithArgs("weather").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			keyRows := sqlmock.NewRows([]string{"name"})
			for _, k := range tt.keys {
				keyRows.AddRow(k)
			}
			mock.ExpectQuery("SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk").
				WithArgs("weather", "main").
				WillReturnRows(keyRows)

			meta, err := conn.TableMetadata(context.Background(), "main", "weather")
			require.NoError(t, err)
			assert.Equal(t, tt.engine, meta.Engine)
			assert.Equal(t, tt.keys, meta.KeyColumns)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEmbedded_TableMetadataMissingTable(t *testing.T) {
	conn, mock := openMock(t, sqliteDialect())

	mock.ExpectQuery(`SELECT count(*) FROM "main".sqlite_master WHERE type = 'table' AND name = ?`).
		WithArgs("weather").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err := conn.TableMetadata(context.Background(), "main", "weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEmbedded_InsertOrReplaceFormatsTimestamps(t *testing.T) {
	conn, mock := openMock(t, sqliteDialect())
	rows := sampleRows()[:1]

	mock.ExpectQuery("SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk").
		WithArgs("weather", "main").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("date_time").AddRow("lat"))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT OR REPLACE INTO "main"."weather" ("date_time", "lat", "wind_speed") VALUES (?, ?, ?)`)
	prep.ExpectExec().WithArgs("2024-01-01 00:00:00", 52.3, nil).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := conn.Insert(context.Background(), "main", "weather", []string{"date_time", "lat", "wind_speed"}, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedded_PlainInsertWithoutKey(t *testing.T) {
	conn, mock := openMock(t, embeddedDialect{backend: "duckdb", catalog: duckDBCatalog{}})
	rows := sampleRows()[:1]

	mock.ExpectQuery("SELECT unnest(constraint_column_names) FROM duckdb_constraints() "+
		"WHERE schema_name = ? AND table_name = ? AND constraint_type = 'PRIMARY KEY'").
		WithArgs("main", "weather").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO "main"."weather" ("date_time") VALUES (?)`)
	prep.ExpectExec().WithArgs(rows[0].Timestamp).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := conn.Insert(context.Background(), "main", "weather", []string{"date_time"}, rows)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedded_CompactKeepsNewestRowPerKey(t *testing.T) {
	conn, mock := openMock(t, sqliteDialect())

	mock.ExpectQuery("SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk").
		WithArgs("weather", "main").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("date_time").AddRow("lat").AddRow("lon"))
	mock.ExpectExec(`DELETE FROM "main"."weather" WHERE rowid NOT IN ` +
		`(SELECT max(rowid) FROM "main"."weather" GROUP BY "date_time", "lat", "lon")`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, conn.Compact(context.Background(), "main", "weather"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedded_CompactWithoutKeyIsNoop(t *testing.T) {
	conn, mock := openMock(t, sqliteDialect())

	mock.ExpectQuery("SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk").
		WithArgs("weather", "main").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	require.NoError(t, conn.Compact(context.Background(), "main", "weather"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedded_TruncateDeletesRows(t *testing.T) {
	conn, mock := openMock(t, sqliteDialect())

	mock.ExpectExec(`DELETE FROM "main"."weather"`).WillReturnResult(sqlmock.NewResult(0, 10))

	require.NoError(t, conn.Truncate(context.Background(), "main", "weather"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDB_TableExists(t *testing.T) {
	conn, mock := openMock(t, embeddedDialect{backend: "duckdb", catalog: duckDBCatalog{}})

	mock.ExpectQuery("SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?").
		WithArgs("fairq_raw", "dwd_observations_processed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := conn.TableExists(context.Background(), "fairq_raw", "dwd_observations_processed")
	require.NoError(t, err)
	assert.True(t, exists)
}

type stubConn struct {
	Conn
	closeErr error
	closed   bool
}

func (c *stubConn) Close() error {
	c.closed = true
	return c.closeErr
}

type stubConnector struct {
	conn    *stubConn
	openErr error
}

func (c stubConnector) Open(context.Context) (Conn, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.conn, nil
}

func TestWithConn(t *testing.T) {
	errWork := errors.New("work failed")
	errClose := errors.New("close failed")

	t.Run("closes after success", func(t *testing.T) {
		conn := &stubConn{}
		err := WithConn(context.Background(), stubConnector{conn: conn}, func(Conn) error { return nil })
		assert.NoError(t, err)
		assert.True(t, conn.closed)
	})

	t.Run("closes after failure", func(t *testing.T) {
		conn := &stubConn{}
		err := WithConn(context.Background(), stubConnector{conn: conn}, func(Conn) error { return errWork })
		assert.Same(t, errWork, err)
		assert.True(t, conn.closed)
	})

	t.Run("reports both errors", func(t *testing.T) {
		conn := &stubConn{closeErr: errClose}
		err := WithConn(context.Background(), stubConnector{conn: conn}, func(Conn) error { return errWork })
		assert.ErrorIs(t, err, errWork)
		assert.ErrorIs(t, err, errClose)
	})

	t.Run("open failure skips fn", func(t *testing.T) {
		called := false
		err := WithConn(context.Background(), stubConnector{openErr: errors.New("refused")}, func(Conn) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestSplitSortingKey(t *testing.T) {
	assert.Equal(t, []string{"date_time", "lat", "lon"}, splitSortingKey("date_time, lat, lon"))
	assert.Equal(t, []string{"date_time"}, splitSortingKey("date_time"))
	assert.Nil(t, splitSortingKey(""))
	assert.Nil(t, splitSortingKey("  "))
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("fairq_raw"))
	assert.True(t, ValidIdentifier("_tmp1"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("1table"))
	assert.False(t, ValidIdentifier("dwd.observations"))
	assert.False(t, ValidIdentifier("x`y"))
}

func TestNewConnector(t *testing.T) {
	for _, st := range StorageTypes {
		c, err := NewConnector(st, Options{Path: "weather.db"}, zerolog.Nop())
		require.NoError(t, err, st)
		assert.NotNil(t, c)
	}

	_, err := NewConnector("postgres", Options{}, zerolog.Nop())
	assert.Error(t, err)
}
