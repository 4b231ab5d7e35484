package render

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/twpayne/go-geom"
)

// Borders reads a boundary shapefile and returns its outlines as lat/lng
// polylines for the map underlay. PolyLine and Polygon shapes contribute
// one line per part; other shape types are skipped.
func Borders(shpPath string) ([][][2]float64, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "render: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	var lines [][][2]float64
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		switch s := shape.(type) {
		case *shp.PolyLine:
			lines = append(lines, partLines(s.NumParts, s.Parts, s.Points)...)
		case *shp.Polygon:
			lines = append(lines, partLines(s.NumParts, s.Parts, s.Points)...)
		default:
			skipped++
		}
	}

	if skipped > 0 {
		zap.L().Debug("render: skipped non-line shapes",
			zap.String("shapefile", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return lines, nil
}

// BorderGeometry converts the same outlines into a go-geom MultiLineString,
// for callers that emit borders as GeoJSON rather than a map underlay.
func BorderGeometry(lines [][][2]float64) *geom.MultiLineString {
	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for _, line := range lines {
		flat := make([]float64, 0, len(line)*2)
		for _, pt := range line {
			// geom coordinates are lng/lat order
			flat = append(flat, pt[1], pt[0])
		}
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("render: skipping malformed border line", zap.Error(err))
		}
	}
	return mls
}

// partLines splits a multi-part shape into lat/lng lines, one per part.
func partLines(numParts int32, parts []int32, points []shp.Point) [][][2]float64 {
	if numParts == 0 || len(points) == 0 {
		return nil
	}

	out := make([][][2]float64, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}

		line := make([][2]float64, 0, end-start)
		for j := start; j < end; j++ {
			line = append(line, [2]float64{points[j].Y, points[j].X})
		}
		if len(line) >= 2 {
			out = append(out, line)
		}
	}
	return out
}
