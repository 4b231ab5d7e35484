package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/fetcher"
	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/postal"
)

var (
	geonamesCountry string
	geonamesURL     string
	geonamesForce   bool
)

var geonamesCmd = &cobra.Command{
	Use:   "fetch-geonames",
	Short: "Load coordinates from a GeoNames postal-code dump",
	Long:  "Downloads the GeoNames postal-code archive for a country, over HTTP or FTP, and saves its coordinates as the coordinates snapshot. An alternative to scraping and geocoding when the dump covers the country.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(geonamesCountry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if !geonamesForce {
			done, err := st.HasStage(ctx, country, model.StageCoordinates)
			if err != nil {
				return eris.Wrap(err, "geonames: check coordinates stage")
			}
			if done {
				zap.L().Info("coordinates snapshot already exists, skipping",
					zap.String("country", country.String()))
				return nil
			}
		}

		rawURL := geonamesURL
		if rawURL == "" {
			rawURL = fmt.Sprintf("https://download.geonames.org/export/zip/%s.zip",
				strings.ToUpper(country.ISOCode()))
		}

		f := initFetcher()
		if strings.HasPrefix(rawURL, "ftp://") {
			f = fetcher.NewFTPFetcher(fetcher.FTPOptions{})
		}

		tmpDir, err := os.MkdirTemp("", "geonames")
		if err != nil {
			return eris.Wrap(err, "geonames: create temp dir")
		}
		defer os.RemoveAll(tmpDir) //nolint:errcheck

		zipPath := filepath.Join(tmpDir, filepath.Base(rawURL))
		n, err := f.DownloadToFile(ctx, rawURL, zipPath)
		if err != nil {
			return eris.Wrapf(err, "geonames: download %s", rawURL)
		}
		zap.L().Info("archive downloaded", zap.String("url", rawURL), zap.Int64("bytes", n))

		// Archives name the dump after the country code: DE.zip holds DE.txt.
		dumpName := strings.TrimSuffix(filepath.Base(zipPath), ".zip") + ".txt"
		dumpPath, err := fetcher.ExtractZIPFile(zipPath, dumpName, tmpDir)
		if err != nil {
			return err
		}

		dump, err := os.Open(dumpPath)
		if err != nil {
			return eris.Wrapf(err, "geonames: open %s", dumpPath)
		}
		defer dump.Close() //nolint:errcheck

		records, err := postal.ParseGeoNames(ctx, dump, country)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.Errorf("geonames: dump has no rows for %s", country)
		}

		if err := st.SaveRecords(ctx, country, model.StageCoordinates, records); err != nil {
			return err
		}
		zap.L().Info("coordinates stage saved from dump",
			zap.String("country", country.String()),
			zap.Int("codes", len(records)),
		)
		return nil
	},
}

func init() {
	geonamesCmd.Flags().StringVar(&geonamesCountry, "country", "germany", "country whose dump to load")
	geonamesCmd.Flags().StringVar(&geonamesURL, "url", "", "archive URL, http(s) or ftp (default the GeoNames export for the country)")
	geonamesCmd.Flags().BoolVar(&geonamesForce, "force", false, "overwrite an existing coordinates snapshot")
	rootCmd.AddCommand(geonamesCmd)
}
