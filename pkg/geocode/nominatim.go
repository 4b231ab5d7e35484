package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// nominatimPlace is one entry of the Nominatim search response.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a single postal code against the Nominatim search API.
// Service-unavailable responses and timeouts are retried with a fixed delay;
// an empty result set is a clean no-match.
func (g *geocoder) Geocode(ctx context.Context, q Query) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"q":      {fmt.Sprintf("%s, %s", q.PostalCode, q.City)},
		"format": {"json"},
		"limit":  {"1"},
	}
	if q.CountryCode != "" {
		params.Set("countrycodes", q.CountryCode)
	}
	reqURL := g.baseURL + "/search?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "geocode: cancelled")
			case <-time.After(g.retryDelay):
			}
		}

		places, err := g.search(ctx, reqURL)
		if err != nil {
			lastErr = err
			zap.L().Warn("geocode: request failed, retrying",
				zap.String("postal_code", q.PostalCode),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		if len(places) == 0 {
			zap.L().Debug("geocode: no match", zap.String("postal_code", q.PostalCode))
			return &Result{PostalCode: q.PostalCode}, nil
		}

		lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
		lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
		if latErr != nil || lonErr != nil {
			return nil, eris.Errorf("geocode: unparsable coordinates for %s", q.PostalCode)
		}

		return &Result{
			PostalCode: q.PostalCode,
			Latitude:   lat,
			Longitude:  lon,
			Matched:    true,
		}, nil
	}

	return nil, eris.Wrapf(lastErr, "geocode: %s after %d attempts", q.PostalCode, g.maxRetries)
}

// search performs one request against the search endpoint.
func (g *geocoder) search(ctx context.Context, reqURL string) ([]nominatimPlace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	return places, nil
}

// BatchGeocode resolves queries with a bounded worker pool. Individual
// failures degrade to unmatched results rather than failing the batch; the
// shared limiter keeps the pool within the instance's rate policy.
func (g *geocoder) BatchGeocode(ctx context.Context, queries []Query) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([]Result, len(queries))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.batchConcurrency)

	for i, q := range queries {
		eg.Go(func() error {
			r, err := g.Geocode(gCtx, q)
			if err != nil || r == nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				results[i] = Result{PostalCode: q.PostalCode}
				return nil //nolint:nilerr // individual failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "geocode: batch cancelled")
	}
	return results, nil
}
