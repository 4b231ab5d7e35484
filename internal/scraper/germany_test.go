package scraper

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/postal-cli/internal/model"
)

type stubFetcher struct {
	pages map[string]string
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	body, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (s *stubFetcher) DownloadToFile(context.Context, string, string) (int64, error) {
	return 0, fmt.Errorf("not supported")
}

const cityListHTML = `<html><body>
<table class="wikitable">
<tr class="hintergrundfarbe6"><th>Land</th><th>Abk.</th></tr>
<tr><td><a href="/wiki/Bayern" title="Bayern">Bayern</a> (BY)</td><td>2056</td></tr>
<tr><td><a href="/wiki/Nordrhein-Westfalen" title="Nordrhein-Westfalen">Nordrhein-Westfalen</a> (NW)</td><td>396</td></tr>
</table>
<table>
<tr><td>
<dl>
<dd><a href="/wiki/Aachen" title="Aachen">Aachen</a> (NW)</dd>
<dd><a href="/wiki/Augsburg" title="Augsburg">Augsburg</a> (BY)</dd>
<dd><a href="/wiki/M%C3%BCnchen" title="München">München</a> (BY)</dd>
<dd><a href="/wiki/Essen" title="Essen (Ruhr)">Essen</a> (NW)</dd>
<dd><a href="/wiki/Anderswo" title="Anderswo">Anderswo</a> (XX)</dd>
</dl>
</td></tr>
</table>
</body></html>`

const infoboxPageHTML = `<html><body>
<table class="hintergrundfarbe5 float-right toptextcells infobox">
<tr><td><a href="/wiki/Postleitzahl_(Deutschland)" title="Postleitzahl (Deutschland)">Postleitzahlen</a>:</td>
<td>86150–86199<br/><small>weitere</small></td></tr>
</table>
</body></html>`

const cityStatePageHTML = `<html><body>
<table>
<tr><td><a href="/wiki/Postleitzahl_(Deutschland)" title="Postleitzahl (Deutschland)">Postleitzahlen</a>:</td>
<td>10115–14199</td></tr>
</table>
</body></html>`

func TestGermanyCities(t *testing.T) {
	g := NewGermany(Sources{CityListURL: "http://test/cities"})
	f := &stubFetcher{pages: map[string]string{"http://test/cities": cityListHTML}}

	rows, err := g.Cities(context.Background(), f)

	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, model.CityRow{
		Region: "Nordrhein-Westfalen", RegionCode: "NW", City: "Aachen", Link: "/wiki/Aachen",
	}, rows[0])
	assert.Equal(t, "Bayern", rows[1].Region)
	assert.Equal(t, "München", rows[2].City)
	// parenthesized qualifier stripped from the page title
	assert.Equal(t, "Essen", rows[3].City)

	cities := make([]string, 0, len(rows))
	for _, r := range rows {
		cities = append(cities, r.City)
	}
	// unknown region code dropped
	assert.NotContains(t, cities, "Anderswo")
}

func TestGermanyCities_NoRegionTable(t *testing.T) {
	g := NewGermany(Sources{CityListURL: "http://test/cities"})
	f := &stubFetcher{pages: map[string]string{"http://test/cities": "<html><body></body></html>"}}

	_, err := g.Cities(context.Background(), f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no region table")
}

func TestGermanyPostalCodes(t *testing.T) {
	g := NewGermany(Sources{PageBaseURL: "http://test"})
	f := &stubFetcher{pages: map[string]string{
		"http://test/wiki/Augsburg": infoboxPageHTML,
		"http://test/wiki/Berlin":   cityStatePageHTML,
	}}

	cities := []model.CityRow{
		{Region: "Bayern", RegionCode: "BY", City: "Augsburg", Link: "/wiki/Augsburg"},
		{Region: "Berlin", RegionCode: "BE", City: "Berlin", Link: "/wiki/Berlin"},
		{Region: "Bayern", RegionCode: "BY", City: "Fehlend", Link: "/wiki/Fehlend"},
	}

	rows, err := g.PostalCodes(context.Background(), f, cities)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "86150–86199", rows[0].PostalCode)
	// city-states have no standard infobox; the first table is read instead
	assert.Equal(t, "10115–14199", rows[1].PostalCode)
	// an unreachable page degrades to an empty cell, not a batch failure
	assert.Equal(t, "", rows[2].PostalCode)
	assert.Equal(t, "Fehlend", rows[2].City)
}

func TestGermanyRegionCodes(t *testing.T) {
	g := NewGermany(Sources{CodeListURL: "http://test/germany/"})
	f := &stubFetcher{pages: map[string]string{
		"http://test/germany/": `<html><body><div class="regions">
			<a href="/germany/bayern">Bayern</a>
			<a href="/germany/nordrhein-westfalen">Nordrhein Westfalen</a>
		</div></body></html>`,
		"http://test/germany/bayern": `<html><body>
			<div class="container"><div class="place">Munchen</div><div class="code">80331</div></div>
			<div class="container"><div class="place">Augsburg</div><div class="code">86150</div></div>
		</body></html>`,
		"http://test/germany/nordrhein-westfalen": `<html><body>
			<div class="container"><div class="place">Aachen</div><div class="code">52062</div></div>
		</body></html>`,
	}}

	rows, err := g.RegionCodes(context.Background(), f)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RegionCodeRow{Region: "Bayern", Place: "Munchen", PostalCode: "80331"}, rows[0])
	assert.Equal(t, "Aachen", rows[2].Place)
}

func TestMergeCodes(t *testing.T) {
	cities := []model.CityRow{
		{Region: "Bayern", RegionCode: "BY", City: "München", Link: "/wiki/M%C3%BCnchen"},
		{Region: "Bayern", RegionCode: "BY", City: "Augsburg", Link: "/wiki/Augsburg"},
	}
	codes := []RegionCodeRow{
		{Region: "Bayern", Place: "Munchen", PostalCode: "80331"},
		{Region: "Bayern", Place: "Munchen", PostalCode: "80333"},
	}

	rows := MergeCodes(cities, codes)

	require.Len(t, rows, 3)
	// diacritics-folded keys match München against Munchen
	assert.Equal(t, "München", rows[0].City)
	assert.Equal(t, "80331", rows[0].PostalCode)
	assert.Equal(t, "80333", rows[1].PostalCode)
	// unmatched city survives with an empty cell
	assert.Equal(t, "Augsburg", rows[2].City)
	assert.Equal(t, "", rows[2].PostalCode)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(DefaultSources())

	s, err := r.Get(model.Germany)
	require.NoError(t, err)
	assert.Equal(t, model.Germany, s.Country())

	_, err = r.Get(model.Country("atlantis"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scraper registered")

	assert.Equal(t, []model.Country{model.Germany}, r.Countries())
}

func TestLoadSources(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		sf, err := LoadSources("")
		require.NoError(t, err)
		assert.Equal(t, "https://de.wikipedia.org", sf.For(model.Germany).PageBaseURL)
	})

	t.Run("overlay keeps unset fields", func(t *testing.T) {
		path := t.TempDir() + "/sources.yaml"
		yml := "countries:\n  germany:\n    city_list_url: http://mirror/cities\n"
		require.NoError(t, writeFile(path, yml))

		sf, err := LoadSources(path)
		require.NoError(t, err)
		src := sf.For(model.Germany)
		assert.Equal(t, "http://mirror/cities", src.CityListURL)
		assert.Equal(t, "https://de.wikipedia.org", src.PageBaseURL)
		assert.Equal(t, 8, src.Concurrency)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSources("/nonexistent/sources.yaml")
		require.Error(t, err)
	})
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
