package postal

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/fetcher"
	"github.com/geowerk/postal-cli/internal/model"
)

// GeoNames postal dump column positions (tab-separated, no header).
const (
	gnCountryCode = 0
	gnPostalCode  = 1
	gnPlaceName   = 2
	gnLatitude    = 9
	gnLongitude   = 10

	gnMinFields = 11
)

// ParseGeoNames reads a GeoNames postal-code dump (the TSV inside their
// country ZIP files) into records, already carrying coordinates. Duplicate
// postal codes keep the first place name. Rows with unparsable coordinates
// keep the code with absent coordinates.
func ParseGeoNames(ctx context.Context, r io.Reader, country model.Country) ([]model.Record, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter:  '\t',
		LazyQuotes: true,
		TrimSpace:  true,
	})

	wantCountry := country.ISOCode()
	seen := make(map[string]bool)
	var (
		out     []model.Record
		badRows int
	)

	for row := range rowCh {
		if len(row) < gnMinFields {
			badRows++
			continue
		}
		if wantCountry != "" && !strings.EqualFold(row[gnCountryCode], wantCountry) {
			continue
		}
		code := row[gnPostalCode]
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		rec := model.Record{PostalCode: code, City: row[gnPlaceName]}
		lat, latErr := strconv.ParseFloat(row[gnLatitude], 64)
		lon, lonErr := strconv.ParseFloat(row[gnLongitude], 64)
		if latErr == nil && lonErr == nil {
			rec.Latitude = &lat
			rec.Longitude = &lon
		}
		out = append(out, rec)
	}

	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "postal: parse geonames dump")
	}
	if badRows > 0 {
		zap.L().Warn("postal: skipped malformed geonames rows", zap.Int("rows", badRows))
	}
	return out, nil
}
