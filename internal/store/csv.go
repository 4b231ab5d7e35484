package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/geowerk/postal-cli/internal/model"
)

const runsFileName = "geocode_runs.csv"

// CSVStore persists each stage snapshot as a CSV file under a data
// directory, one file per country and stage.
type CSVStore struct {
	dir string
}

// NewCSV creates a CSV store rooted at dir, creating it if needed.
func NewCSV(dir string) (*CSVStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "csv: create data dir %s", dir)
	}
	return &CSVStore{dir: dir}, nil
}

// Path returns the snapshot file for a country and stage.
func (s *CSVStore) Path(country model.Country, stage model.Stage) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", country, stage))
}

func (s *CSVStore) SaveCities(_ context.Context, country model.Country, rows []model.CityRow) error {
	return writeSnapshot(s.Path(country, model.StageCities), rows)
}

func (s *CSVStore) LoadCities(_ context.Context, country model.Country) ([]model.CityRow, error) {
	return readSnapshot[model.CityRow](s.Path(country, model.StageCities))
}

func (s *CSVStore) SaveCodedCities(_ context.Context, country model.Country, stage model.Stage, rows []model.CodedCityRow) error {
	return writeSnapshot(s.Path(country, stage), rows)
}

func (s *CSVStore) LoadCodedCities(_ context.Context, country model.Country, stage model.Stage) ([]model.CodedCityRow, error) {
	return readSnapshot[model.CodedCityRow](s.Path(country, stage))
}

func (s *CSVStore) SaveRecords(_ context.Context, country model.Country, stage model.Stage, rows []model.Record) error {
	return writeSnapshot(s.Path(country, stage), rows)
}

func (s *CSVStore) LoadRecords(_ context.Context, country model.Country, stage model.Stage) ([]model.Record, error) {
	return readSnapshot[model.Record](s.Path(country, stage))
}

// HasStage reports whether the stage snapshot file exists.
func (s *CSVStore) HasStage(_ context.Context, country model.Country, stage model.Stage) (bool, error) {
	_, err := os.Stat(s.Path(country, stage))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, eris.Wrapf(err, "csv: stat %s", s.Path(country, stage))
}

// RecordRun rewrites the runs file with the run upserted by ID.
func (s *CSVStore) RecordRun(_ context.Context, run Run) error {
	path := filepath.Join(s.dir, runsFileName)
	runs, err := readSnapshotOrEmpty[Run](path)
	if err != nil {
		return err
	}

	replaced := false
	for i := range runs {
		if runs[i].ID == run.ID {
			runs[i] = run
			replaced = true
			break
		}
	}
	if !replaced {
		runs = append(runs, run)
	}
	return writeSnapshot(path, runs)
}

func (s *CSVStore) ListRuns(_ context.Context, country model.Country) ([]Run, error) {
	runs, err := readSnapshotOrEmpty[Run](filepath.Join(s.dir, runsFileName))
	if err != nil {
		return nil, err
	}
	var out []Run
	for _, r := range runs {
		if r.Country == country {
			out = append(out, r)
		}
	}
	return out, nil
}

// Migrate ensures the data directory exists.
func (s *CSVStore) Migrate(context.Context) error {
	return eris.Wrapf(os.MkdirAll(s.dir, 0o755), "csv: create data dir %s", s.dir)
}

func (s *CSVStore) Close() error { return nil }

func writeSnapshot[T any](path string, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrapf(err, "csv: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "csv: write %s", path)
	}
	return nil
}

func readSnapshot[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: read %s", path)
	}
	var rows []T
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "csv: unmarshal %s", path)
	}
	return rows, nil
}

func readSnapshotOrEmpty[T any](path string) ([]T, error) {
	rows, err := readSnapshot[T](path)
	if err != nil {
		if os.IsNotExist(eris.Cause(err)) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}
