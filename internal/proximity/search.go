// Package proximity finds postal codes near a reference point.
//
// A Searcher wraps an in-memory country dataset and answers two kinds of
// query sharing the same reference-resolution and validation logic: an exact
// great-circle search on the WGS-84 ellipsoid, and a cheaper rectangular
// bounding-box prefilter. The dataset is read-only for the lifetime of the
// Searcher; every call materializes a fresh result slice.
package proximity

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/geowerk/postal-cli/internal/geodesy"
	"github.com/geowerk/postal-cli/internal/model"
)

// DefaultRadiusKM is the search radius used when the caller does not set one.
const DefaultRadiusKM = 50.0

// Kilometers per degree of latitude, and per degree of longitude at the
// equator. The longitude span is corrected by cos(latitude) of the reference.
const (
	kmPerDegreeLat = 110.574
	kmPerDegreeLon = 111.320
)

// parallelThreshold is the dataset size above which distance computation fans
// out across CPUs. Each row's distance is independent, so partitioning needs
// no coordination beyond the final join.
const parallelThreshold = 10000

// Reference selects the center of a search: exactly one of PostalCode or City
// must be set. Matching is exact, case-sensitive string equality with no
// normalization; the first matching row wins. When both are set, PostalCode
// takes precedence.
type Reference struct {
	PostalCode string
	City       string
}

func (r Reference) empty() bool { return r.PostalCode == "" && r.City == "" }

// Match is one result row. DistanceKM is populated by ByDistance only; the
// bounding-box variant does not compute distances.
type Match struct {
	Record     model.Record
	DistanceKM float64
}

// Searcher answers nearby-postal-code queries over one country dataset.
type Searcher struct {
	rows     []model.Record // rows with both coordinates, dataset order preserved
	total    int            // dataset size before the coordinate filter
	maxProcs int
}

// NewSearcher builds a Searcher over the given dataset. Rows missing either
// coordinate are dropped up front and can never appear in a result; the
// original dataset is not retained or mutated.
func NewSearcher(dataset []model.Record) *Searcher {
	rows := make([]model.Record, 0, len(dataset))
	for _, rec := range dataset {
		if rec.HasCoordinates() {
			rows = append(rows, rec)
		}
	}
	return &Searcher{
		rows:     rows,
		total:    len(dataset),
		maxProcs: runtime.GOMAXPROCS(0),
	}
}

// validate runs the shared precondition checks and resolves the reference
// row. The returned index points into s.rows.
func (s *Searcher) validate(ref Reference, radiusKM float64) (int, error) {
	if radiusKM <= 0 || math.IsNaN(radiusKM) {
		return 0, ErrInvalidRadius
	}
	if ref.empty() {
		return 0, ErrMissingReference
	}
	if len(s.rows) == 0 {
		if s.total == 0 {
			return 0, ErrReferenceNotFound
		}
		return 0, ErrNoGeocodedData
	}

	for i, rec := range s.rows {
		if ref.PostalCode != "" {
			if rec.PostalCode == ref.PostalCode {
				return i, nil
			}
			continue
		}
		if rec.City == ref.City {
			return i, nil
		}
	}
	return 0, ErrReferenceNotFound
}

// ByDistance returns every postal code whose geodesic distance to the
// reference lies strictly between zero and radiusKM. The strict lower bound
// excludes the reference itself, and with it any other row at the exact same
// coordinates; co-located postal codes therefore never match each other.
func (s *Searcher) ByDistance(ref Reference, radiusKM float64) ([]Match, error) {
	refIdx, err := s.validate(ref, radiusKM)
	if err != nil {
		return nil, err
	}
	refRow := s.rows[refIdx]
	lat0, lon0 := *refRow.Latitude, *refRow.Longitude

	dists := make([]float64, len(s.rows))
	if len(s.rows) >= parallelThreshold && s.maxProcs > 1 {
		s.distancesParallel(lat0, lon0, dists)
	} else {
		for i, rec := range s.rows {
			dists[i] = geodesy.DistanceKM(*rec.Latitude, *rec.Longitude, lat0, lon0)
		}
	}

	var matches []Match
	for i, rec := range s.rows {
		if dists[i] > 0 && dists[i] < radiusKM {
			matches = append(matches, Match{Record: rec, DistanceKM: dists[i]})
		}
	}
	return matches, nil
}

// distancesParallel splits the rows into one contiguous partition per CPU.
// Partitions write to disjoint ranges of dists, so no locking is needed.
func (s *Searcher) distancesParallel(lat0, lon0 float64, dists []float64) {
	var g errgroup.Group
	chunk := (len(s.rows) + s.maxProcs - 1) / s.maxProcs
	for start := 0; start < len(s.rows); start += chunk {
		end := min(start+chunk, len(s.rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				rec := s.rows[i]
				dists[i] = geodesy.DistanceKM(*rec.Latitude, *rec.Longitude, lat0, lon0)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
}

// ByBounding returns every postal code inside an axis-aligned box of
// ±radiusKM around the reference, bounds inclusive. The box is an
// approximation: rows near the corners can exceed the true circular radius,
// and the longitude span diverges as the reference approaches a pole
// (cos(lat)→0). Both are accepted limitations of this variant; use
// ByDistance when exactness matters.
//
// The reference row is excluded by index identity, not by value, so a
// duplicate row at the same coordinates is still returned.
func (s *Searcher) ByBounding(ref Reference, radiusKM float64) ([]Match, error) {
	refIdx, err := s.validate(ref, radiusKM)
	if err != nil {
		return nil, err
	}
	refRow := s.rows[refIdx]
	lat0, lon0 := *refRow.Latitude, *refRow.Longitude

	latSpan := radiusKM / kmPerDegreeLat
	lonSpan := radiusKM / (kmPerDegreeLon * math.Cos(lat0*math.Pi/180))

	minLat, maxLat := lat0-latSpan, lat0+latSpan
	minLon, maxLon := lon0-lonSpan, lon0+lonSpan

	var matches []Match
	for i, rec := range s.rows {
		if i == refIdx {
			continue
		}
		lat, lon := *rec.Latitude, *rec.Longitude
		if lat >= minLat && lat <= maxLat && lon >= minLon && lon <= maxLon {
			matches = append(matches, Match{Record: rec})
		}
	}
	return matches, nil
}

// Codes extracts the postal codes from a match set.
func Codes(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Record.PostalCode
	}
	return out
}
