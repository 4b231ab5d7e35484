package scraper

import (
	"github.com/rotisserie/eris"

	"github.com/geowerk/postal-cli/internal/model"
)

// Registry maps countries to their scraper implementations.
type Registry struct {
	scrapers map[model.Country]CityScraper
	order    []model.Country // registration order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		scrapers: make(map[model.Country]CityScraper),
	}
}

// DefaultRegistry returns a registry with every built-in scraper registered,
// configured from the given sources.
func DefaultRegistry(src SourcesFile) *Registry {
	r := NewRegistry()
	r.Register(NewGermany(src.For(model.Germany)))
	return r
}

// Register adds a scraper to the registry.
func (r *Registry) Register(s CityScraper) {
	c := s.Country()
	r.scrapers[c] = s
	r.order = append(r.order, c)
}

// Get returns the scraper for a country.
func (r *Registry) Get(country model.Country) (CityScraper, error) {
	s, ok := r.scrapers[country]
	if !ok {
		return nil, eris.Errorf("scraper: no scraper registered for %q", country)
	}
	return s, nil
}

// Countries returns all registered countries in registration order.
func (r *Registry) Countries() []model.Country {
	out := make([]model.Country, len(r.order))
	copy(out, r.order)
	return out
}
