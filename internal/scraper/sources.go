package scraper

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/geowerk/postal-cli/internal/model"
)

// Sources holds the per-country scrape URLs. All fields have built-in
// defaults; a YAML sources file overrides individual values.
type Sources struct {
	// CityListURL is the page listing the country's cities by region.
	CityListURL string `yaml:"city_list_url"`
	// PageBaseURL prefixes the relative per-city links from the city list.
	PageBaseURL string `yaml:"page_base_url"`
	// CodeListURL is the aggregator country page with per-region code listings.
	CodeListURL string `yaml:"code_list_url"`
	// Concurrency bounds the per-city fetch worker pool.
	Concurrency int `yaml:"concurrency"`
}

// SourcesFile maps country names to their scrape sources.
type SourcesFile struct {
	Countries map[string]Sources `yaml:"countries"`
}

// DefaultSources returns the built-in sources for every supported country.
func DefaultSources() SourcesFile {
	return SourcesFile{
		Countries: map[string]Sources{
			model.Germany.String(): {
				CityListURL: "https://de.wikipedia.org/wiki/Liste_der_St%C3%A4dte_in_Deutschland",
				PageBaseURL: "https://de.wikipedia.org",
				CodeListURL: "https://worldpostalcode.com/germany/",
				Concurrency: 8,
			},
		},
	}
}

// LoadSources reads a YAML sources file and overlays it on the defaults.
// Only the fields present in the file override; unset fields keep their
// built-in values. An empty path returns the defaults unchanged.
func LoadSources(path string) (SourcesFile, error) {
	base := DefaultSources()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return SourcesFile{}, eris.Wrapf(err, "scraper: read sources file %s", path)
	}

	var overlay SourcesFile
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return SourcesFile{}, eris.Wrapf(err, "scraper: parse sources file %s", path)
	}

	for country, src := range overlay.Countries {
		merged := base.Countries[country]
		if src.CityListURL != "" {
			merged.CityListURL = src.CityListURL
		}
		if src.PageBaseURL != "" {
			merged.PageBaseURL = src.PageBaseURL
		}
		if src.CodeListURL != "" {
			merged.CodeListURL = src.CodeListURL
		}
		if src.Concurrency > 0 {
			merged.Concurrency = src.Concurrency
		}
		if base.Countries == nil {
			base.Countries = make(map[string]Sources)
		}
		base.Countries[country] = merged
	}
	return base, nil
}

// For returns the sources for a country, zero-valued if unknown.
func (sf SourcesFile) For(c model.Country) Sources {
	return sf.Countries[c.String()]
}
