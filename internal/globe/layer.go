package globe

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Layer is a background polygon set read from a shapefile, in lon/lat degrees.
type Layer struct {
	Name     string
	Polygons *geom.MultiPolygon
	Skipped  int
}

// LoadLayer reads every polygon shape of the shapefile at path. Shapes of
// other types and malformed rings are skipped and counted.
func LoadLayer(name, path string) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "globe: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	layer := &Layer{Name: name, Polygons: geom.NewMultiPolygon(geom.XY)}
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			layer.Skipped++
			continue
		}
		layer.Skipped += appendPolygon(layer.Polygons, poly)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "globe: read shapefile %s", path)
	}

	zap.L().Debug("globe: loaded layer",
		zap.String("layer", name),
		zap.String("path", path),
		zap.Int("polygons", layer.Polygons.NumPolygons()),
		zap.Int("skipped", layer.Skipped),
	)
	return layer, nil
}

// appendPolygon adds the parts of a shapefile polygon to mp. Clockwise rings
// start a new polygon and counter-clockwise rings are holes of the current
// one. Returns the number of rings that could not be used.
func appendPolygon(mp *geom.MultiPolygon, p *shp.Polygon) int {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return 1
	}

	var (
		current *geom.Polygon
		skipped int
	)
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("globe: skipping malformed polygon", zap.Error(err))
			skipped++
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 3 {
			skipped++
			continue
		}

		flat := closedRing(p.Points[start:end])
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if current == nil || signedArea(flat) < 0 {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("globe: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			skipped++
		}
	}
	flush()
	return skipped
}

// closedRing flattens points to x,y pairs, repeating the first point at the
// end when the ring is open.
func closedRing(points []shp.Point) []float64 {
	flat := make([]float64, 0, 2*len(points)+2)
	for _, pt := range points {
		flat = append(flat, pt.X, pt.Y)
	}
	first, last := points[0], points[len(points)-1]
	if first.X != last.X || first.Y != last.Y {
		flat = append(flat, first.X, first.Y)
	}
	return flat
}

// signedArea is the shoelace area of a closed flat ring; negative means clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	for i := 0; i+3 < len(flat); i += 2 {
		sum += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return sum / 2
}
