// Package model defines the data types shared across the postal pipeline.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Country identifies a supported country dataset. The value is the lowercase
// English country name and doubles as the snapshot key on disk.
type Country string

const (
	Germany Country = "germany"
)

// ISOCode returns the ISO 3166-1 alpha-2 code for the country, lowercased.
func (c Country) ISOCode() string {
	switch c {
	case Germany:
		return "de"
	default:
		return ""
	}
}

// String returns the country name.
func (c Country) String() string { return string(c) }

// ParseCountry converts a string into a Country.
func ParseCountry(s string) (Country, error) {
	switch Country(strings.ToLower(strings.TrimSpace(s))) {
	case Germany:
		return Germany, nil
	default:
		return "", eris.Errorf("unknown country: %q (valid: germany)", s)
	}
}

// Stage names a checkpoint in the extraction pipeline. Each stage persists one
// snapshot per country; a stage is skipped when its snapshot already exists.
type Stage string

const (
	StageCities      Stage = "cities"
	StageCodes       Stage = "cities_postalcodes"
	StageCleaned     Stage = "cities_cleaned_postalcodes"
	StageSplit       Stage = "cities_splitted_postalcodes"
	StageCoordinates Stage = "postal_codes_and_coordinates"
)

// Stages lists all pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageCities, StageCodes, StageCleaned, StageSplit, StageCoordinates}
}

// CityRow is a scraped city entry before postal codes are attached.
type CityRow struct {
	Region     string `csv:"Region"`
	RegionCode string `csv:"RegionCode"`
	City       string `csv:"City"`
	Link       string `csv:"Link"`
}

// CodedCityRow is a city entry with its raw postal-code cell as scraped,
// before range expansion and splitting.
type CodedCityRow struct {
	Region     string `csv:"Region"`
	RegionCode string `csv:"RegionCode"`
	City       string `csv:"City"`
	Link       string `csv:"Link"`
	PostalCode string `csv:"PostalCode"`
}

// Record is one postal-code row of a country dataset. PostalCode is opaque
// text (zero-padded, country-specific); it is the lookup key but is not
// guaranteed unique after city splitting, so lookups take the first match.
// Latitude and Longitude are nil until geocoding resolves them.
type Record struct {
	PostalCode string   `csv:"PostalCode" json:"postal_code"`
	City       string   `csv:"City" json:"city"`
	Latitude   *float64 `csv:"Latitude,omitempty" json:"latitude,omitempty"`
	Longitude  *float64 `csv:"Longitude,omitempty" json:"longitude,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the pair is inside the WGS-84 domain.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
