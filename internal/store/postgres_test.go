package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/postal-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_SaveRecords(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM postal_records").
		WithArgs("germany", "postal_codes_and_coordinates").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"postal_records"},
		[]string{"country", "stage", "postal_code", "city", "latitude", "longitude"}).
		WillReturnResult(2)

	err := s.SaveRecords(context.Background(), model.Germany, model.StageCoordinates, testRecords())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRecords(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"postal_code", "city", "latitude", "longitude"}).
		AddRow("10115", "Berlin", ptr(52.532), ptr(13.385)).
		AddRow("20095", "Hamburg", (*float64)(nil), (*float64)(nil))
	mock.ExpectQuery("SELECT postal_code, city, latitude, longitude FROM postal_records").
		WithArgs("germany", "postal_codes_and_coordinates").
		WillReturnRows(rows)

	got, err := s.LoadRecords(context.Background(), model.Germany, model.StageCoordinates)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Latitude)
	assert.InDelta(t, 52.532, *got[0].Latitude, 1e-9)
	assert.Nil(t, got[1].Latitude)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasStage(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM postal_records`).
		WithArgs("germany", "cities_splitted_postalcodes").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	ok, err := s.HasStage(context.Background(), model.Germany, model.StageSplit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasStage_Cities(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cities`).
		WithArgs("germany").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := s.HasStage(context.Background(), model.Germany, model.StageCities)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_geocode_runs"},
		[]string{"id", "country", "stage", "row_count", "matched", "status", "started_at", "finished_at"}).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "geocode_runs"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.RecordRun(context.Background(), Run{
		ID: "run-1", Country: model.Germany, Stage: model.StageCoordinates,
		Rows: 10, Matched: 9, Status: RunStatusComplete,
		StartedAt: time.Now(), FinishedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cities").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
