// Package store persists pipeline stage snapshots keyed by country, with
// CSV, SQLite, and Postgres backends selected by configuration.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geowerk/postal-cli/internal/config"
	"github.com/geowerk/postal-cli/internal/model"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Run records one geocode pass over a country snapshot.
type Run struct {
	ID         string        `csv:"ID" json:"id"`
	Country    model.Country `csv:"Country" json:"country"`
	Stage      model.Stage   `csv:"Stage" json:"stage"`
	Rows       int           `csv:"Rows" json:"rows"`
	Matched    int           `csv:"Matched" json:"matched"`
	Status     string        `csv:"Status" json:"status"`
	StartedAt  time.Time     `csv:"StartedAt" json:"started_at"`
	FinishedAt time.Time     `csv:"FinishedAt" json:"finished_at"`
}

// Store defines the persistence interface for pipeline snapshots. Saves
// replace the whole stage snapshot for the country.
type Store interface {
	SaveCities(ctx context.Context, country model.Country, rows []model.CityRow) error
	LoadCities(ctx context.Context, country model.Country) ([]model.CityRow, error)

	SaveCodedCities(ctx context.Context, country model.Country, stage model.Stage, rows []model.CodedCityRow) error
	LoadCodedCities(ctx context.Context, country model.Country, stage model.Stage) ([]model.CodedCityRow, error)

	SaveRecords(ctx context.Context, country model.Country, stage model.Stage, rows []model.Record) error
	LoadRecords(ctx context.Context, country model.Country, stage model.Stage) ([]model.Record, error)

	// HasStage reports whether a non-empty snapshot exists for the stage.
	HasStage(ctx context.Context, country model.Country, stage model.Stage) (bool, error)

	// RecordRun upserts a geocode run by ID.
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, country model.Country) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store backend named by the config driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "csv":
		return NewCSV(cfg.DataDir)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: csv, sqlite, postgres)", cfg.Driver)
	}
}
