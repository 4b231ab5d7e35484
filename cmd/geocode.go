package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/store"
	"github.com/geowerk/postal-cli/pkg/geocode"
)

var (
	geocodeCountry string
	geocodeWorkers int
	geocodeForce   bool
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve postal codes to coordinates",
	Long:  "Geocodes the split postal-code snapshot through Nominatim and saves the coordinates snapshot. Codes that fail to resolve keep empty coordinates; the run record tracks the match count.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(geocodeCountry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if !geocodeForce {
			done, err := st.HasStage(ctx, country, model.StageCoordinates)
			if err != nil {
				return eris.Wrap(err, "geocode: check coordinates stage")
			}
			if done {
				zap.L().Info("coordinates already obtained, skipping",
					zap.String("country", country.String()))
				return nil
			}
		}

		records, err := st.LoadRecords(ctx, country, model.StageSplit)
		if err != nil {
			return eris.Wrap(err, "geocode: load split snapshot")
		}
		if len(records) == 0 {
			return eris.Errorf("geocode: empty split snapshot for %s, transform first", country)
		}

		workers := geocodeWorkers
		if workers == 0 {
			workers = cfg.Geocode.Workers
		}
		client := geocode.NewClient(
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithRateLimit(cfg.Geocode.RequestsPerSecond),
			geocode.WithMaxRetries(cfg.Geocode.MaxRetries),
			geocode.WithBatchConcurrency(workers),
		)

		run := store.Run{
			ID:        uuid.NewString(),
			Country:   country,
			Stage:     model.StageCoordinates,
			Rows:      len(records),
			Status:    store.RunStatusRunning,
			StartedAt: time.Now().UTC(),
		}
		if err := st.RecordRun(ctx, run); err != nil {
			return eris.Wrap(err, "geocode: record run start")
		}

		queries := make([]geocode.Query, len(records))
		for i, rec := range records {
			queries[i] = geocode.Query{
				PostalCode:  rec.PostalCode,
				City:        rec.City,
				CountryCode: country.ISOCode(),
			}
		}

		results, err := client.BatchGeocode(ctx, queries)
		if err != nil {
			run.Status = store.RunStatusFailed
			run.FinishedAt = time.Now().UTC()
			if recErr := st.RecordRun(ctx, run); recErr != nil {
				zap.L().Error("record failed run", zap.Error(recErr))
			}
			return eris.Wrap(err, "geocode: batch geocode")
		}

		matched := 0
		for i, res := range results {
			if !res.Matched {
				continue
			}
			lat, lon := res.Latitude, res.Longitude
			records[i].Latitude = &lat
			records[i].Longitude = &lon
			matched++
		}

		if err := st.SaveRecords(ctx, country, model.StageCoordinates, records); err != nil {
			return err
		}

		run.Matched = matched
		run.Status = store.RunStatusComplete
		run.FinishedAt = time.Now().UTC()
		if err := st.RecordRun(ctx, run); err != nil {
			return eris.Wrap(err, "geocode: record run finish")
		}

		zap.L().Info("coordinates stage saved",
			zap.String("country", country.String()),
			zap.Int("codes", len(records)),
			zap.Int("matched", matched),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeCountry, "country", "germany", "country to geocode")
	geocodeCmd.Flags().IntVar(&geocodeWorkers, "workers", 0, "geocoding worker count (default from config)")
	geocodeCmd.Flags().BoolVar(&geocodeForce, "force", false, "re-geocode even when a coordinates snapshot exists")
	rootCmd.AddCommand(geocodeCmd)
}
