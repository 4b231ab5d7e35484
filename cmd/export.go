package main

import (
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/model"
)

var (
	exportCountry string
	exportFormat  string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the coordinates snapshot to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(exportCountry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.LoadRecords(ctx, country, model.StageCoordinates)
		if err != nil {
			return eris.Wrapf(err, "export: no coordinates snapshot for %s, geocode first", country)
		}

		switch exportFormat {
		case "csv":
			err = exportCSV(exportOut, records)
		case "xlsx":
			err = exportXLSX(exportOut, records)
		default:
			return eris.Errorf("export: unknown format %q (valid: csv, xlsx)", exportFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("snapshot exported",
			zap.String("country", country.String()),
			zap.String("format", exportFormat),
			zap.String("path", exportOut),
			zap.Int("rows", len(records)),
		)
		return nil
	},
}

func exportCSV(path string, records []model.Record) error {
	data, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "export: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

func exportXLSX(path string, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("postal_codes")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"PostalCode", "City", "Latitude", "Longitude"} {
		header.AddCell().SetString(h)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(rec.PostalCode)
		row.AddCell().SetString(rec.City)
		latCell, lonCell := row.AddCell(), row.AddCell()
		if rec.HasCoordinates() {
			latCell.SetFloat(*rec.Latitude)
			lonCell.SetFloat(*rec.Longitude)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportCountry, "country", "germany", "country dataset to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv, xlsx)")
	exportCmd.Flags().StringVar(&exportOut, "out", "postal_codes.csv", "output file path")
	rootCmd.AddCommand(exportCmd)
}
