package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/store"
)

func newEngine(t *testing.T, pages map[string]string) (*Engine, store.Store) {
	t.Helper()
	st, err := store.NewCSV(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	g := NewGermany(Sources{
		CityListURL: "http://test/cities",
		PageBaseURL: "http://test",
		CodeListURL: "http://test/germany/",
	})
	reg := NewRegistry()
	reg.Register(g)
	return NewEngine(reg, st, &stubFetcher{pages: pages}), st
}

func TestEngine_Run(t *testing.T) {
	pages := map[string]string{
		"http://test/cities":            cityListHTML,
		"http://test/wiki/Aachen":       infoboxPageHTML,
		"http://test/wiki/Augsburg":     infoboxPageHTML,
		"http://test/wiki/M%C3%BCnchen": infoboxPageHTML,
		"http://test/wiki/Essen":        infoboxPageHTML,
	}
	e, st := newEngine(t, pages)
	ctx := context.Background()

	require.NoError(t, e.Run(ctx, model.Germany, RunOpts{}))

	cities, err := st.LoadCities(ctx, model.Germany)
	require.NoError(t, err)
	assert.Len(t, cities, 4)

	coded, err := st.LoadCodedCities(ctx, model.Germany, model.StageCodes)
	require.NoError(t, err)
	require.Len(t, coded, 4)
	assert.Equal(t, "86150–86199", coded[0].PostalCode)
}

func TestEngine_SkipsCompletedStages(t *testing.T) {
	// no pages at all: both stages must be skipped, not fetched
	e, st := newEngine(t, map[string]string{})
	ctx := context.Background()

	require.NoError(t, st.SaveCities(ctx, model.Germany, []model.CityRow{
		{Region: "Bayern", RegionCode: "BY", City: "Augsburg", Link: "/wiki/Augsburg"},
	}))
	require.NoError(t, st.SaveCodedCities(ctx, model.Germany, model.StageCodes, []model.CodedCityRow{
		{Region: "Bayern", RegionCode: "BY", City: "Augsburg", Link: "/wiki/Augsburg", PostalCode: "86150"},
	}))

	require.NoError(t, e.Run(ctx, model.Germany, RunOpts{}))
}

func TestEngine_AggregatorPath(t *testing.T) {
	pages := map[string]string{
		"http://test/cities": cityListHTML,
		"http://test/germany/": `<html><body><div class="regions">
			<a href="/germany/bayern">Bayern</a>
		</div></body></html>`,
		"http://test/germany/bayern": `<html><body>
			<div class="container"><div class="place">Munchen</div><div class="code">80331</div></div>
		</body></html>`,
	}
	e, st := newEngine(t, pages)
	ctx := context.Background()

	require.NoError(t, e.Run(ctx, model.Germany, RunOpts{Aggregator: true}))

	coded, err := st.LoadCodedCities(ctx, model.Germany, model.StageCodes)
	require.NoError(t, err)
	require.Len(t, coded, 4)

	byCity := make(map[string]string, len(coded))
	for _, r := range coded {
		byCity[r.City] = r.PostalCode
	}
	assert.Equal(t, "80331", byCity["München"])
	assert.Equal(t, "", byCity["Aachen"])
}

func TestEngine_UnknownCountry(t *testing.T) {
	e, _ := newEngine(t, nil)
	err := e.Run(context.Background(), model.Country("atlantis"), RunOpts{})
	require.Error(t, err)
}
