// Package scraper extracts city and postal-code data from the web sources
// each country publishes. Every country registers one CityScraper; the
// registry replaces any name-based dynamic dispatch so an unsupported
// country fails at lookup time with a clear error.
package scraper

import (
	"context"

	"github.com/geowerk/postal-cli/internal/fetcher"
	"github.com/geowerk/postal-cli/internal/model"
)

// CityScraper defines the extraction steps a country source must implement.
type CityScraper interface {
	// Country returns the country this scraper covers.
	Country() model.Country

	// Cities scrapes the country's city list with region assignments.
	Cities(ctx context.Context, f fetcher.Fetcher) ([]model.CityRow, error)

	// PostalCodes attaches the raw postal-code cell to each scraped city.
	// The cell value is unparsed source text; range expansion happens in
	// the transform stage.
	PostalCodes(ctx context.Context, f fetcher.Fetcher, cities []model.CityRow) ([]model.CodedCityRow, error)
}

// CodeSource is an optional interface for scrapers that can also pull a
// flat region/place/code listing from an aggregator site. The listing is
// merged with the city list on diacritics-folded keys.
type CodeSource interface {
	CityScraper

	// RegionCodes scrapes every region's place and postal-code pairs.
	RegionCodes(ctx context.Context, f fetcher.Fetcher) ([]RegionCodeRow, error)
}

// RegionCodeRow is one place/code pair scraped from an aggregator listing.
type RegionCodeRow struct {
	Region     string `csv:"Region"`
	Place      string `csv:"Place"`
	PostalCode string `csv:"PostalCode"`
}
