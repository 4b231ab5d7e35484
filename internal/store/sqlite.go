package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/geowerk/postal-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	latitude    REAL,
	longitude   REAL
);

CREATE TABLE IF NOT EXISTS geocode_runs (
	id          TEXT PRIMARY KEY,
	country     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	matched     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cities_country ON cities(country);
CREATE INDEX IF NOT EXISTS idx_coded_cities_country_stage ON coded_cities(country, stage);
CREATE INDEX IF NOT EXISTS idx_postal_records_country_stage ON postal_records(country, stage);
CREATE INDEX IF NOT EXISTS idx_geocode_runs_country ON geocode_runs(country);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCities(ctx context.Context, country model.Country, rows []model.CityRow) error {
	return s.replace(ctx, `DELETE FROM cities WHERE country = ?`, []any{string(country)},
		`INSERT INTO cities (country, region, region_code, city, link) VALUES (?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{string(country), r.Region, r.RegionCode, r.City, r.Link}
		})
}

func (s *SQLiteStore) LoadCities(ctx context.Context, country model.Country) ([]model.CityRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region, region_code, city, link FROM cities WHERE country = ?`, string(country))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query cities")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CityRow
	for rows.Next() {
		var r model.CityRow
		if err := rows.Scan(&r.Region, &r.RegionCode, &r.City, &r.Link); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate cities")
}

func (s *SQLiteStore) SaveCodedCities(ctx context.Context, country model.Country, stage model.Stage, rows []model.CodedCityRow) error {
	return s.replace(ctx,
		`DELETE FROM coded_cities WHERE country = ? AND stage = ?`, []any{string(country), string(stage)},
		`INSERT INTO coded_cities (country, stage, region, region_code, city, link, postal_code) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{string(country), string(stage), r.Region, r.RegionCode, r.City, r.Link, r.PostalCode}
		})
}

func (s *SQLiteStore) LoadCodedCities(ctx context.Context, country model.Country, stage model.Stage) ([]model.CodedCityRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region, region_code, city, link, postal_code FROM coded_cities WHERE country = ? AND stage = ?`,
		string(country), string(stage))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query coded cities")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CodedCityRow
	for rows.Next() {
		var r model.CodedCityRow
		if err := rows.Scan(&r.Region, &r.RegionCode, &r.City, &r.Link, &r.PostalCode); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan coded city")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate coded cities")
}

func (s *SQLiteStore) SaveRecords(ctx context.Context, country model.Country, stage model.Stage, rows []model.Record) error {
	return s.replace(ctx,
		`DELETE FROM postal_records WHERE country = ? AND stage = ?`, []any{string(country), string(stage)},
		`INSERT INTO postal_records (country, stage, postal_code, city, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{string(country), string(stage), r.PostalCode, r.City, nullFloat(r.Latitude), nullFloat(r.Longitude)}
		})
}

func (s *SQLiteStore) LoadRecords(ctx context.Context, country model.Country, stage model.Stage) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT postal_code, city, latitude, longitude FROM postal_records WHERE country = ? AND stage = ?`,
		string(country), string(stage))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query records")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Record
	for rows.Next() {
		var (
			r        model.Record
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&r.PostalCode, &r.City, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if lat.Valid {
			r.Latitude = &lat.Float64
		}
		if lon.Valid {
			r.Longitude = &lon.Float64
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) HasStage(ctx context.Context, country model.Country, stage model.Stage) (bool, error) {
	var query string
	args := []any{string(country)}
	switch stage {
	case model.StageCities:
		query = `SELECT COUNT(*) FROM cities WHERE country = ?`
	case model.StageCodes, model.StageCleaned:
		query = `SELECT COUNT(*) FROM coded_cities WHERE country = ? AND stage = ?`
		args = append(args, string(stage))
	default:
		query = `SELECT COUNT(*) FROM postal_records WHERE country = ? AND stage = ?`
		args = append(args, string(stage))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, eris.Wrapf(err, "sqlite: count stage %s", stage)
	}
	return n > 0, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_runs (id, country, stage, row_count, matched, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			row_count = excluded.row_count,
			matched = excluded.matched,
			status = excluded.status,
			finished_at = excluded.finished_at`,
		run.ID, string(run.Country), string(run.Stage), run.Rows, run.Matched,
		run.Status, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: record run %s", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, country model.Country) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, country, stage, row_count, matched, status, started_at, finished_at
		FROM geocode_runs WHERE country = ? ORDER BY started_at`,
		string(country))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Run
	for rows.Next() {
		var (
			r        Run
			cty, stg string
		)
		if err := rows.Scan(&r.ID, &cty, &stg, &r.Rows, &r.Matched, &r.Status, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Country = model.Country(cty)
		r.Stage = model.Stage(stg)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// replace deletes the existing snapshot and inserts the new rows in one
// transaction, so a failed save never leaves a partial stage behind.
func (s *SQLiteStore) replace(ctx context.Context, deleteSQL string, deleteArgs []any, insertSQL string, n int, argsAt func(int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
		return eris.Wrap(err, "sqlite: delete snapshot")
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, argsAt(i)...); err != nil {
			return eris.Wrap(err, "sqlite: insert row")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
