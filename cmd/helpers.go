package main

import (
	"context"
	"time"

	"github.com/geowerk/postal-cli/internal/fetcher"
	"github.com/geowerk/postal-cli/internal/store"
)

// initStore opens the configured snapshot backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// initFetcher builds the HTTP fetcher from the scrape configuration.
func initFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Scrape.UserAgent,
		Timeout:    time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Scrape.MaxRetries,
	})
}
