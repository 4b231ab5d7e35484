package geodesy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Known distances cross-checked against published geodesic calculators
// (GeographicLib). Tolerance 5 m, far tighter than the search radii the
// proximity engine works with.
func TestDistanceKM_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKM                 float64
	}{
		{"berlin-hamburg", 52.5200, 13.4050, 53.5511, 9.9937, 255.958},
		{"berlin-munich", 52.5200, 13.4050, 48.1351, 11.5820, 504.689},
		{"flinders-buninyong", -37.95103, 144.42487, -37.65282, 143.92649, 54.972},
		{"london-paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.923},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKM, got, 0.005)
		})
	}
}

func TestDistanceKM_Zero(t *testing.T) {
	assert.Zero(t, DistanceKM(52.52, 13.405, 52.52, 13.405))
}

func TestDistanceKM_Symmetry(t *testing.T) {
	d1 := DistanceKM(52.5200, 13.4050, 48.1351, 11.5820)
	d2 := DistanceKM(48.1351, 11.5820, 52.5200, 13.4050)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceKM_AntipodalFallback(t *testing.T) {
	// Near-antipodal pairs may not converge; the fallback must still return
	// something close to half the Earth's circumference, not NaN or zero.
	d := DistanceKM(0, 0, 0.5, 179.7)
	assert.False(t, d != d, "distance must not be NaN")
	assert.Greater(t, d, 19000.0)
	assert.Less(t, d, 20100.0)
}

func TestDistanceKM_Equator(t *testing.T) {
	// One degree of longitude at the equator is about 111.32 km.
	d := DistanceKM(0, 0, 0, 1)
	assert.InDelta(t, 111.32, d, 0.01)
}
