package scraper

import (
	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/postal"
)

// MergeCodes left-joins the scraped city list with an aggregator code
// listing on diacritics-folded region and place keys, so "München" matches
// "Munchen". Every city keeps at least one row; cities without a listing
// match keep an empty postal-code cell. A city matching several listing
// rows produces one row per match.
func MergeCodes(cities []model.CityRow, codes []RegionCodeRow) []model.CodedCityRow {
	byKey := make(map[[2]string][]string, len(codes))
	for _, c := range codes {
		key := [2]string{postal.FoldKey(c.Region), postal.FoldKey(c.Place)}
		byKey[key] = append(byKey[key], c.PostalCode)
	}

	out := make([]model.CodedCityRow, 0, len(cities))
	for _, city := range cities {
		key := [2]string{postal.FoldKey(city.Region), postal.FoldKey(city.City)}
		matched := byKey[key]
		if len(matched) == 0 {
			out = append(out, model.CodedCityRow{
				Region:     city.Region,
				RegionCode: city.RegionCode,
				City:       city.City,
				Link:       city.Link,
			})
			continue
		}
		for _, code := range matched {
			out = append(out, model.CodedCityRow{
				Region:     city.Region,
				RegionCode: city.RegionCode,
				City:       city.City,
				Link:       city.Link,
				PostalCode: code,
			})
		}
	}
	return out
}
