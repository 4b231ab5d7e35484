package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/proximity"
)

var (
	nearbyCountry  string
	nearbyCode     string
	nearbyCity     string
	nearbyRadiusKM float64
	nearbyBounding bool
	nearbyJSON     bool
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Find postal codes near a reference place",
	Long:  "Searches the coordinates snapshot for postal codes within a radius of a reference postal code or city. The default is exact geodesic distance; --bounding switches to the cheaper rectangular approximation.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(nearbyCountry)
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
			return eris.Wrapf(err, "nearby: no coordinates snapshot for %s, geocode first", country)
		}

		radius := nearbyRadiusKM
		if !cmd.Flags().Changed("radius") {
			radius = cfg.Search.DefaultRadiusKM
		}
		ref := proximity.Reference{PostalCode: nearbyCode, City: nearbyCity}

		searcher := proximity.NewSearcher(records)
		var matches []proximity.Match
		if nearbyBounding {
			matches, err = searcher.ByBounding(ref, radius)
		} else {
			matches, err = searcher.ByDistance(ref, radius)
		}
		if err != nil {
			// Search failures are diagnostics, not crashes. An unmatched
			// reference or an ungeocoded dataset still exits cleanly.
			if errors.Is(err, proximity.ErrReferenceNotFound) || errors.Is(err, proximity.ErrNoGeocodedData) {
				fmt.Fprintln(os.Stderr, eris.Cause(err).Error())
				return nil
			}
			return err
		}

		if nearbyJSON {
			return writeNearbyJSON(os.Stdout, matches, nearbyBounding)
		}
		writeNearbyTable(os.Stdout, matches, nearbyBounding)
		return nil
	},
}

// nearbyRow is one match in the --json output.
type nearbyRow struct {
	PostalCode string   `json:"postal_code"`
	City       string   `json:"city"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

func writeNearbyJSON(out io.Writer, matches []proximity.Match, bounding bool) error {
	rows := make([]nearbyRow, len(matches))
	for i, m := range matches {
		rows[i] = nearbyRow{
			PostalCode: m.Record.PostalCode,
			City:       m.Record.City,
			Latitude:   *m.Record.Latitude,
			Longitude:  *m.Record.Longitude,
		}
		if !bounding {
			d := m.DistanceKM
			rows[i].DistanceKM = &d
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeNearbyTable(out io.Writer, matches []proximity.Match, bounding bool) {
	if len(matches) == 0 {
		fmt.Fprintln(out, "No postal codes within the radius.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if bounding {
		_, _ = fmt.Fprintln(w, "CODE\tCITY")
		for _, m := range matches {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", m.Record.PostalCode, m.Record.City)
		}
	} else {
		_, _ = fmt.Fprintln(w, "CODE\tCITY\tDISTANCE_KM")
		for _, m := range matches {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\n", m.Record.PostalCode, m.Record.City, m.DistanceKM)
		}
	}
	_ = w.Flush()
}

func init() {
	nearbyCmd.Flags().StringVar(&nearbyCountry, "country", "germany", "country dataset to search")
	nearbyCmd.Flags().StringVar(&nearbyCode, "code", "", "reference postal code")
	nearbyCmd.Flags().StringVar(&nearbyCity, "city", "", "reference city, used when --code is not set")
	nearbyCmd.Flags().Float64Var(&nearbyRadiusKM, "radius", 0, "search radius in kilometers (default from config)")
	nearbyCmd.Flags().BoolVar(&nearbyBounding, "bounding", false, "use the rectangular bounding-box approximation")
	nearbyCmd.Flags().BoolVar(&nearbyJSON, "json", false, "emit matches as JSON")
	rootCmd.AddCommand(nearbyCmd)
}
