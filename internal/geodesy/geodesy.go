// Package geodesy computes distances between latitude/longitude points on the
// WGS-84 ellipsoid.
package geodesy

import "math"

// WGS-84 ellipsoid parameters.
const (
	semiMajorM = 6378137.0
	semiMinorM = 6356752.314245
	flattening = 1 / 298.257223563
)

// meanEarthRadiusKM is used only by the spherical fallback.
const meanEarthRadiusKM = 6371.0088

// vincentyMaxIter bounds the inverse-formula iteration. 200 iterations is far
// beyond what any convergent pair needs; non-convergence only happens for
// near-antipodal points.
const vincentyMaxIter = 200

const vincentyTolerance = 1e-12

// DistanceKM returns the geodesic distance in kilometers between two points
// given in degrees, using the Vincenty inverse formula on the WGS-84
// ellipsoid. The result is accurate to well under a meter. For the rare
// near-antipodal pair where the iteration does not converge, the spherical
// haversine distance is returned instead; at those ranges the error stays far
// below regional-search tolerances.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := radians(lat1)
	phi2 := radians(lat2)
	l := radians(lon2 - lon1)

	u1 := math.Atan((1 - flattening) * math.Tan(phi1))
	u2 := math.Atan((1 - flattening) * math.Tan(phi2))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64

	converged := false
	for range vincentyMaxIter {
		sinLambda, cosLambda := math.Sincos(lambda)

		sinSigma = math.Sqrt(
			(cosU2*sinLambda)*(cosU2*sinLambda) +
				(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda),
		)
		if sinSigma == 0 {
			// Coincident points.
			return 0
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			// Equatorial line.
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}

		c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < vincentyTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return haversineKM(lat1, lon1, lat2, lon2)
	}

	uSq := cosSqAlpha * (semiMajorM*semiMajorM - semiMinorM*semiMinorM) / (semiMinorM * semiMinorM)
	a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := b * sinSigma * (cos2SigmaM + b/4*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return semiMinorM * a * (sigma - deltaSigma) / 1000
}

// haversineKM is the spherical great-circle distance, used only as the
// Vincenty non-convergence fallback.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(radians(lat1))*math.Cos(radians(lat2))*sinDLon*sinDLon

	return 2 * meanEarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
