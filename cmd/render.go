package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/proximity"
	"github.com/geowerk/postal-cli/internal/render"
)

var (
	renderCountry  string
	renderCode     string
	renderRadiusKM float64
	renderOut      string
	renderBorders  string
	renderFormat   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the dataset and a nearby search as a map",
	Long:  "Writes an HTML map (or a GeoJSON feature collection) of the country's postal codes, highlighting the reference code and its nearby matches. Administrative borders come from an optional shapefile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(renderCountry)
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
			return eris.Wrapf(err, "render: no coordinates snapshot for %s, geocode first", country)
		}

		radius := renderRadiusKM
		if !cmd.Flags().Changed("radius") {
			radius = cfg.Search.DefaultRadiusKM
		}

		var nearbyCodes []string
		if renderCode != "" {
			searcher := proximity.NewSearcher(records)
			matches, err := searcher.ByDistance(proximity.Reference{PostalCode: renderCode}, radius)
			if err != nil {
				return err
			}
			nearbyCodes = proximity.Codes(matches)
		}

		switch renderFormat {
		case "geojson":
			data, err := render.GeoJSON(records, renderCode, nearbyCodes)
			if err != nil {
				return err
			}
			if err := os.WriteFile(renderOut, data, 0o644); err != nil {
				return eris.Wrapf(err, "render: write %s", renderOut)
			}
		case "html":
			title := fmt.Sprintf("Postal codes: %s", country)
			data := render.BuildMap(title, records, renderCode, nearbyCodes)
			if renderBorders != "" {
				lines, err := render.Borders(renderBorders)
				if err != nil {
					return err
				}
				data.Borders = lines
			}

			out, err := os.Create(renderOut)
			if err != nil {
				return eris.Wrapf(err, "render: create %s", renderOut)
			}
			defer out.Close() //nolint:errcheck
			if err := render.HTML(out, data); err != nil {
				return err
			}
		default:
			return eris.Errorf("render: unknown format %q (valid: html, geojson)", renderFormat)
		}

		zap.L().Info("map rendered",
			zap.String("country", country.String()),
			zap.String("format", renderFormat),
			zap.String("path", renderOut),
			zap.Int("nearby", len(nearbyCodes)),
		)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderCountry, "country", "germany", "country dataset to render")
	renderCmd.Flags().StringVar(&renderCode, "code", "", "reference postal code to highlight")
	renderCmd.Flags().Float64Var(&renderRadiusKM, "radius", 0, "search radius in kilometers (default from config)")
	renderCmd.Flags().StringVar(&renderOut, "out", "map.html", "output file path")
	renderCmd.Flags().StringVar(&renderBorders, "borders", "", "shapefile with administrative borders to draw")
	renderCmd.Flags().StringVar(&renderFormat, "format", "html", "output format (html, geojson)")
	rootCmd.AddCommand(renderCmd)
}
