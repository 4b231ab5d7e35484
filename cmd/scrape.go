package main

import (
	"github.com/spf13/cobra"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/scraper"
)

var (
	scrapeCountry    string
	scrapeForce      bool
	scrapeAggregator bool
	scrapeSources    string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape city and postal-code data for a country",
	Long:  "Runs the extraction stages: the city list first, then per-city postal codes. Stages with an existing snapshot are skipped unless --force is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(scrapeCountry)
		if err != nil {
			return err
		}

		sourcesPath := scrapeSources
		if sourcesPath == "" {
			sourcesPath = cfg.Scrape.SourcesFile
		}
		sources := scraper.DefaultSources()
		if sourcesPath != "" {
			sources, err = scraper.LoadSources(sourcesPath)
			if err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		engine := scraper.NewEngine(scraper.DefaultRegistry(sources), st, initFetcher())
		return engine.Run(ctx, country, scraper.RunOpts{
			Force:      scrapeForce,
			Aggregator: scrapeAggregator,
		})
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeCountry, "country", "germany", "country to scrape")
	scrapeCmd.Flags().BoolVar(&scrapeForce, "force", false, "re-scrape stages whose snapshots already exist")
	scrapeCmd.Flags().BoolVar(&scrapeAggregator, "aggregator", false, "pull postal codes from the aggregator listing instead of per-city pages")
	scrapeCmd.Flags().StringVar(&scrapeSources, "sources", "", "path to a sources YAML overriding the built-in URLs (default from config)")
	rootCmd.AddCommand(scrapeCmd)
}
