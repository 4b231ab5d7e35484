package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geowerk/postal-cli/internal/fetcher"
	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/postal"
)

// regionCodeRE matches the two-letter state abbreviation that follows each
// city link on the Wikipedia list page, e.g. "Aachen (NW)".
var regionCodeRE = regexp.MustCompile(`[A-Z]{2}`)

// postalLabelSelector locates the postal-code label anchor inside a city
// page's infobox. The value sits in the cell that follows the label cell.
const postalLabelSelector = `a[title="Postleitzahl (Deutschland)"]`

// infoboxSelector matches the standard German Wikipedia city infobox table.
const infoboxSelector = "table.hintergrundfarbe5.float-right.toptextcells.infobox"

// Germany scrapes the German city list and per-city postal codes from the
// German-language Wikipedia, and the aggregate code listing from
// worldpostalcode.com.
type Germany struct {
	src Sources
}

// NewGermany creates the Germany scraper. Zero-valued source fields fall
// back to the built-in defaults.
func NewGermany(src Sources) *Germany {
	def := DefaultSources().For(model.Germany)
	if src.CityListURL == "" {
		src.CityListURL = def.CityListURL
	}
	if src.PageBaseURL == "" {
		src.PageBaseURL = def.PageBaseURL
	}
	if src.CodeListURL == "" {
		src.CodeListURL = def.CodeListURL
	}
	if src.Concurrency <= 0 {
		src.Concurrency = def.Concurrency
	}
	return &Germany{src: src}
}

// Country returns model.Germany.
func (g *Germany) Country() model.Country { return model.Germany }

// Cities scrapes the city list page. The first wikitable maps state names to
// their two-letter codes; the unstyled tables below hold the per-state city
// entries as dd elements. Cities whose state code has no entry in the region
// table are dropped.
func (g *Germany) Cities(ctx context.Context, f fetcher.Fetcher) ([]model.CityRow, error) {
	zap.L().Info("scraper: fetching city list",
		zap.String("country", g.Country().String()),
		zap.String("url", g.src.CityListURL),
	)

	doc, err := g.fetchDoc(ctx, f, g.src.CityListURL)
	if err != nil {
		return nil, err
	}

	regions := make(map[string]string) // code -> region name
	doc.Find("table.wikitable").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if _, hasClass := tr.Attr("class"); hasClass {
			return
		}
		cell := tr.Find("td").First()
		anchor := cell.Find("a").First()
		region, ok := anchor.Attr("title")
		if !ok {
			return
		}
		// trailing text node carries the code, e.g. " (BW)"
		code := strings.Trim(cell.Contents().Last().Text(), " ()\n\t")
		if code != "" {
			regions[code] = region
		}
	})
	if len(regions) == 0 {
		return nil, eris.Errorf("scraper: no region table found on %s", g.src.CityListURL)
	}

	var rows []model.CityRow
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if cls, _ := table.Attr("class"); cls != "" {
			return
		}
		table.Find("td dd").Each(func(_ int, dd *goquery.Selection) {
			anchor := dd.Find("a").First()
			link, ok := anchor.Attr("href")
			if !ok {
				return
			}
			title, ok := anchor.Attr("title")
			if !ok {
				return
			}
			rest := strings.TrimPrefix(dd.Text(), anchor.Text())
			code := regionCodeRE.FindString(rest)
			region, known := regions[code]
			if !known {
				return
			}
			rows = append(rows, model.CityRow{
				Region:     region,
				RegionCode: code,
				City:       postal.CleanCityName(title),
				Link:       link,
			})
		})
	})
	if len(rows) == 0 {
		return nil, eris.Errorf("scraper: no city entries found on %s", g.src.CityListURL)
	}

	zap.L().Info("scraper: city list scraped", zap.Int("cities", len(rows)))
	return rows, nil
}

// PostalCodes fetches each city's page and reads the postal-code cell from
// its infobox. Berlin and Hamburg are city-states whose pages carry no
// standard infobox; their first table holds the code. Cities are fetched
// concurrently with a bounded worker pool; a page without a readable code
// yields an empty cell rather than failing the batch.
func (g *Germany) PostalCodes(ctx context.Context, f fetcher.Fetcher, cities []model.CityRow) ([]model.CodedCityRow, error) {
	rows := make([]model.CodedCityRow, len(cities))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.src.Concurrency)

	for i, city := range cities {
		eg.Go(func() error {
			code, err := g.cityPostalCode(gCtx, f, city)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Warn("scraper: postal code not found",
					zap.String("city", city.City),
					zap.Error(err),
				)
				code = ""
			}
			rows[i] = model.CodedCityRow{
				Region:     city.Region,
				RegionCode: city.RegionCode,
				City:       city.City,
				Link:       city.Link,
				PostalCode: code,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "scraper: postal code scrape")
	}
	return rows, nil
}

// cityPostalCode reads the raw postal-code cell from one city page.
func (g *Germany) cityPostalCode(ctx context.Context, f fetcher.Fetcher, city model.CityRow) (string, error) {
	doc, err := g.fetchDoc(ctx, f, g.src.PageBaseURL+city.Link)
	if err != nil {
		return "", err
	}

	var table *goquery.Selection
	switch city.City {
	case "Berlin", "Hamburg":
		table = doc.Find("table").First()
	default:
		table = doc.Find(infoboxSelector).First()
	}
	if table.Length() == 0 {
		return "", eris.Errorf("scraper: no infobox on page for %s", city.City)
	}

	label := table.Find(postalLabelSelector).First()
	if label.Length() == 0 {
		return "", eris.Errorf("scraper: no postal code label for %s", city.City)
	}

	value := label.ParentsFiltered("td,th").First().Next()
	code := strings.Trim(value.Contents().First().Text(), "\n \t")
	if code == "" {
		return "", eris.Errorf("scraper: empty postal code cell for %s", city.City)
	}
	return code, nil
}

// RegionCodes scrapes the aggregator listing: the country page links each
// region, and each region page lists place/code pairs.
func (g *Germany) RegionCodes(ctx context.Context, f fetcher.Fetcher) ([]RegionCodeRow, error) {
	doc, err := g.fetchDoc(ctx, f, g.src.CodeListURL)
	if err != nil {
		return nil, err
	}

	base := baseOf(g.src.CodeListURL)
	type region struct {
		name string
		href string
	}
	var regions []region
	doc.Find("div.regions a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		regions = append(regions, region{name: strings.TrimSpace(a.Text()), href: href})
	})
	if len(regions) == 0 {
		return nil, eris.Errorf("scraper: no regions found on %s", g.src.CodeListURL)
	}

	var rows []RegionCodeRow
	for _, reg := range regions {
		regDoc, err := g.fetchDoc(ctx, f, base+reg.href)
		if err != nil {
			return nil, eris.Wrapf(err, "scraper: region %s", reg.name)
		}
		regDoc.Find("div.container").Each(func(_ int, div *goquery.Selection) {
			place := strings.TrimSpace(div.Find("div.place").Text())
			code := strings.TrimSpace(div.Find("div.code").Text())
			if place == "" || code == "" {
				return
			}
			rows = append(rows, RegionCodeRow{
				Region:     reg.name,
				Place:      place,
				PostalCode: code,
			})
		})
	}

	zap.L().Info("scraper: aggregate code listing scraped",
		zap.Int("regions", len(regions)),
		zap.Int("codes", len(rows)),
	)
	return rows, nil
}

// fetchDoc downloads a page and parses it.
func (g *Germany) fetchDoc(ctx context.Context, f fetcher.Fetcher, url string) (*goquery.Document, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "scraper: fetch %s", url)
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "scraper: parse %s", url)
	}
	return doc, nil
}

// baseOf strips the path from a URL, keeping scheme and host.
func baseOf(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		if j := strings.Index(url[i+3:], "/"); j >= 0 {
			return url[:i+3+j]
		}
	}
	return url
}
