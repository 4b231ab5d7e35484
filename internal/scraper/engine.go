package scraper

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/fetcher"
	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/store"
)

// Engine orchestrates the checkpointed extraction stages for a country.
// Each stage is skipped when its snapshot already exists, so an aborted
// run resumes where it stopped.
type Engine struct {
	reg     *Registry
	store   store.Store
	fetcher fetcher.Fetcher
}

// RunOpts configures an extraction run.
type RunOpts struct {
	// Force re-scrapes stages whose snapshots already exist.
	Force bool
	// Aggregator pulls postal codes from the aggregator listing merged on
	// folded keys instead of fetching each city page.
	Aggregator bool
}

// NewEngine creates an extraction engine.
func NewEngine(reg *Registry, st store.Store, f fetcher.Fetcher) *Engine {
	return &Engine{reg: reg, store: st, fetcher: f}
}

// Run scrapes the city list and postal codes for a country.
func (e *Engine) Run(ctx context.Context, country model.Country, opts RunOpts) error {
	log := zap.L().With(
		zap.String("component", "scraper.engine"),
		zap.String("country", country.String()),
	)

	s, err := e.reg.Get(country)
	if err != nil {
		return err
	}

	if err := e.runCities(ctx, log, s, opts); err != nil {
		return err
	}
	return e.runCodes(ctx, log, s, opts)
}

func (e *Engine) runCities(ctx context.Context, log *zap.Logger, s CityScraper, opts RunOpts) error {
	country := s.Country()
	if !opts.Force {
		done, err := e.store.HasStage(ctx, country, model.StageCities)
		if err != nil {
			return eris.Wrap(err, "scraper: check cities stage")
		}
		if done {
			log.Info("cities already scraped, skipping", zap.String("stage", string(model.StageCities)))
			return nil
		}
	}

	cities, err := s.Cities(ctx, e.fetcher)
	if err != nil {
		return err
	}
	if err := e.store.SaveCities(ctx, country, cities); err != nil {
		return err
	}
	log.Info("cities stage saved", zap.Int("rows", len(cities)))
	return nil
}

func (e *Engine) runCodes(ctx context.Context, log *zap.Logger, s CityScraper, opts RunOpts) error {
	country := s.Country()
	if !opts.Force {
		done, err := e.store.HasStage(ctx, country, model.StageCodes)
		if err != nil {
			return eris.Wrap(err, "scraper: check codes stage")
		}
		if done {
			log.Info("postal codes already scraped, skipping", zap.String("stage", string(model.StageCodes)))
			return nil
		}
	}

	cities, err := e.store.LoadCities(ctx, country)
	if err != nil {
		return eris.Wrap(err, "scraper: load cities snapshot")
	}
	if len(cities) == 0 {
		return eris.Errorf("scraper: empty cities snapshot for %s", country)
	}

	var coded []model.CodedCityRow
	if opts.Aggregator {
		src, ok := s.(CodeSource)
		if !ok {
			return eris.Errorf("scraper: %s has no aggregator source", country)
		}
		listing, err := src.RegionCodes(ctx, e.fetcher)
		if err != nil {
			return err
		}
		coded = MergeCodes(cities, listing)
	} else {
		coded, err = s.PostalCodes(ctx, e.fetcher, cities)
		if err != nil {
			return err
		}
	}

	if err := e.store.SaveCodedCities(ctx, country, model.StageCodes, coded); err != nil {
		return err
	}
	log.Info("postal codes stage saved", zap.Int("rows", len(coded)))
	return nil
}
