package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/geowerk/postal-cli/internal/db"
	"github.com/geowerk/postal-cli/internal/model"
)

// PostgresStore implements Store using a pgx connection pool. Snapshot
// saves go through the COPY protocol; run records are merged with a bulk
// upsert so re-recording a run updates it in place.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cities (
	country     TEXT NOT NULL,
	region      TEXT NOT NULL,
	region_code TEXT NOT NULL,
	city        TEXT NOT NULL,
	link        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS coded_cities (
	country     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	region      TEXT NOT NULL DEFAULT '',
	region_code TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL,
	link        TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS postal_records (
	country     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	city        TEXT NOT NULL,
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS geocode_runs (
	id          TEXT PRIMARY KEY,
	country     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	matched     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cities_country ON cities(country);
CREATE INDEX IF NOT EXISTS idx_coded_cities_country_stage ON coded_cities(country, stage);
CREATE INDEX IF NOT EXISTS idx_postal_records_country_stage ON postal_records(country, stage);
CREATE INDEX IF NOT EXISTS idx_geocode_runs_country ON geocode_runs(country);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveCities(ctx context.Context, country model.Country, rows []model.CityRow) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cities WHERE country = $1`, string(country)); err != nil {
		return eris.Wrap(err, "postgres: delete cities")
	}
	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		copyRows[i] = []any{string(country), r.Region, r.RegionCode, r.City, r.Link}
	}
	_, err := db.CopyFrom(ctx, s.pool, "cities",
		[]string{"country", "region", "region_code", "city", "link"}, copyRows)
	return err
}

func (s *PostgresStore) LoadCities(ctx context.Context, country model.Country) ([]model.CityRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region, region_code, city, link FROM cities WHERE country = $1`, string(country))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query cities")
	}
	defer rows.Close()

	var out []model.CityRow
	for rows.Next() {
		var r model.CityRow
		if err := rows.Scan(&r.Region, &r.RegionCode, &r.City, &r.Link); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate cities")
}

func (s *PostgresStore) SaveCodedCities(ctx context.Context, country model.Country, stage model.Stage, rows []model.CodedCityRow) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM coded_cities WHERE country = $1 AND stage = $2`, string(country), string(stage)); err != nil {
		return eris.Wrap(err, "postgres: delete coded cities")
	}
	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		copyRows[i] = []any{string(country), string(stage), r.Region, r.RegionCode, r.City, r.Link, r.PostalCode}
	}
	_, err := db.CopyFrom(ctx, s.pool, "coded_cities",
		[]string{"country", "stage", "region", "region_code", "city", "link", "postal_code"}, copyRows)
	return err
}

func (s *PostgresStore) LoadCodedCities(ctx context.Context, country model.Country, stage model.Stage) ([]model.CodedCityRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region, region_code, city, link, postal_code FROM coded_cities WHERE country = $1 AND stage = $2`,
		string(country), string(stage))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query coded cities")
	}
	defer rows.Close()

	var out []model.CodedCityRow
	for rows.Next() {
		var r model.CodedCityRow
		if err := rows.Scan(&r.Region, &r.RegionCode, &r.City, &r.Link, &r.PostalCode); err != nil {
			return nil, eris.Wrap(err, "postgres: scan coded city")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate coded cities")
}

func (s *PostgresStore) SaveRecords(ctx context.Context, country model.Country, stage model.Stage, rows []model.Record) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM postal_records WHERE country = $1 AND stage = $2`, string(country), string(stage)); err != nil {
		return eris.Wrap(err, "postgres: delete records")
	}
	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		copyRows[i] = []any{string(country), string(stage), r.PostalCode, r.City, r.Latitude, r.Longitude}
	}
	_, err := db.CopyFrom(ctx, s.pool, "postal_records",
		[]string{"country", "stage", "postal_code", "city", "latitude", "longitude"}, copyRows)
	return err
}

func (s *PostgresStore) LoadRecords(ctx context.Context, country model.Country, stage model.Stage) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT postal_code, city, latitude, longitude FROM postal_records WHERE country = $1 AND stage = $2`,
		string(country), string(stage))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query records")
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.PostalCode, &r.City, &r.Latitude, &r.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) HasStage(ctx context.Context, country model.Country, stage model.Stage) (bool, error) {
	var (
		query string
		args  []any
	)
	switch stage {
	case model.StageCities:
		query = `SELECT COUNT(*) FROM cities WHERE country = $1`
		args = []any{string(country)}
	case model.StageCodes, model.StageCleaned:
		query = `SELECT COUNT(*) FROM coded_cities WHERE country = $1 AND stage = $2`
		args = []any{string(country), string(stage)}
	default:
		query = `SELECT COUNT(*) FROM postal_records WHERE country = $1 AND stage = $2`
		args = []any{string(country), string(stage)}
	}

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, eris.Wrapf(err, "postgres: count stage %s", stage)
	}
	return n > 0, nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run Run) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "geocode_runs",
		Columns:      []string{"id", "country", "stage", "row_count", "matched", "status", "started_at", "finished_at"},
		ConflictKeys: []string{"id"},
	}, [][]any{{
		run.ID, string(run.Country), string(run.Stage), run.Rows, run.Matched,
		run.Status, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	}})
	return err
}

func (s *PostgresStore) ListRuns(ctx context.Context, country model.Country) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, country, stage, row_count, matched, status, started_at, finished_at
		FROM geocode_runs WHERE country = $1 ORDER BY started_at`,
		string(country))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			cty, stg string
		)
		if err := rows.Scan(&r.ID, &cty, &stg, &r.Rows, &r.Matched, &r.Status, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Country = model.Country(cty)
		r.Stage = model.Stage(stg)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
