// Package render produces GeoJSON documents and self-contained Leaflet
// maps from postal-code snapshots, highlighting a reference point and its
// nearby matches.
package render

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/geowerk/postal-cli/internal/model"
)

// Point categories, stored in the "category" feature property.
const (
	CategoryReference = "reference"
	CategoryNearby    = "nearby"
	CategoryOther     = "other"
)

// GeoJSON encodes the geocoded records as a FeatureCollection of points.
// refCode marks the reference feature, nearbyCodes the in-radius features;
// everything else is categorized as other. Records without coordinates are
// skipped.
func GeoJSON(records []model.Record, refCode string, nearbyCodes []string) ([]byte, error) {
	nearby := make(map[string]bool, len(nearbyCodes))
	for _, c := range nearbyCodes {
		nearby[c] = true
	}

	fc := geojson.FeatureCollection{}
	for _, r := range records {
		if !r.HasCoordinates() {
			continue
		}
		category := CategoryOther
		switch {
		case r.PostalCode == refCode:
			category = CategoryReference
		case nearby[r.PostalCode]:
			category = CategoryNearby
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.PostalCode,
			Geometry: geom.NewPointFlat(geom.XY, []float64{*r.Longitude, *r.Latitude}),
			Properties: map[string]any{
				"postal_code": r.PostalCode,
				"city":        r.City,
				"category":    category,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal feature collection")
	}
	return data, nil
}
