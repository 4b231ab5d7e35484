package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/postal"
	"github.com/geowerk/postal-cli/internal/store"
)

var (
	transformCountry string
	transformForce   bool
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Clean and split scraped postal codes",
	Long:  "Expands range notation in the scraped postal-code cells, then splits multi-code cities into one row per code. Both stages checkpoint and are skipped when their snapshot exists.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(transformCountry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := runClean(ctx, st, country); err != nil {
			return err
		}
		return runSplit(ctx, st, country)
	},
}

// runClean normalizes each city's raw postal-code cell into a comma-separated
// list of individual codes.
func runClean(ctx context.Context, st store.Store, country model.Country) error {
	if !transformForce {
		done, err := st.HasStage(ctx, country, model.StageCleaned)
		if err != nil {
			return eris.Wrap(err, "transform: check cleaned stage")
		}
		if done {
			zap.L().Info("postal codes already cleaned, skipping",
				zap.String("country", country.String()))
			return nil
		}
	}

	rows, err := st.LoadCodedCities(ctx, country, model.StageCodes)
	if err != nil {
		return eris.Wrap(err, "transform: load scraped postal codes")
	}
	if len(rows) == 0 {
		return eris.Errorf("transform: empty postal-code snapshot for %s, scrape first", country)
	}

	cleaned := make([]model.CodedCityRow, len(rows))
	for i, row := range rows {
		row.PostalCode = strings.Join(postal.ExpandRanges(row.PostalCode), ",")
		cleaned[i] = row
	}

	if err := st.SaveCodedCities(ctx, country, model.StageCleaned, cleaned); err != nil {
		return err
	}
	zap.L().Info("cleaned stage saved",
		zap.String("country", country.String()),
		zap.Int("rows", len(cleaned)),
	)
	return nil
}

// runSplit emits one record per postal code, dropping duplicate codes.
func runSplit(ctx context.Context, st store.Store, country model.Country) error {
	if !transformForce {
		done, err := st.HasStage(ctx, country, model.StageSplit)
		if err != nil {
			return eris.Wrap(err, "transform: check split stage")
		}
		if done {
			zap.L().Info("postal codes already split, skipping",
				zap.String("country", country.String()))
			return nil
		}
	}

	rows, err := st.LoadCodedCities(ctx, country, model.StageCleaned)
	if err != nil {
		return eris.Wrap(err, "transform: load cleaned postal codes")
	}

	records := postal.Split(rows)
	if err := st.SaveRecords(ctx, country, model.StageSplit, records); err != nil {
		return err
	}
	zap.L().Info("split stage saved",
		zap.String("country", country.String()),
		zap.Int("codes", len(records)),
	)
	return nil
}

func init() {
	transformCmd.Flags().StringVar(&transformCountry, "country", "germany", "country to transform")
	transformCmd.Flags().BoolVar(&transformForce, "force", false, "re-run stages whose snapshots already exist")
	rootCmd.AddCommand(transformCmd)
}
