package fgb

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf type for the geometries a shapefile
// decodes to, and false for anything else.
func geometryType(geom orb.Geometry) (flattypes.GeometryType, bool) {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint, true
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint, true
	case orb.LineString:
		return flattypes.GeometryTypeLineString, true
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString, true
	case orb.Polygon:
		return flattypes.GeometryTypePolygon, true
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon, true
	default:
		return flattypes.GeometryTypeUnknown, false
	}
}

// layerType returns the geometry type shared by every non-nil geometry, or
// Unknown when they differ. Polygon and MultiPolygon both come out of the
// same polygon shape type, so a mix of the two is reported as MultiPolygon;
// the same goes for lines.
func layerType(geometries []orb.Geometry) flattypes.GeometryType {
	layer := flattypes.GeometryTypeUnknown
	first := true
	for _, g := range geometries {
		if g == nil {
			continue
		}
		t, _ := geometryType(g)
		if first {
			layer, first = t, false
			continue
		}
		if t == layer {
			continue
		}
		switch {
		case isPolygonal(t) && isPolygonal(layer):
			layer = flattypes.GeometryTypeMultiPolygon
		case isLineal(t) && isLineal(layer):
			layer = flattypes.GeometryTypeMultiLineString
		default:
			return flattypes.GeometryTypeUnknown
		}
	}
	return layer
}

func isPolygonal(t flattypes.GeometryType) bool {
	return t == flattypes.GeometryTypePolygon || t == flattypes.GeometryTypeMultiPolygon
}

func isLineal(t flattypes.GeometryType) bool {
	return t == flattypes.GeometryTypeLineString || t == flattypes.GeometryTypeMultiLineString
}

// encodeGeometry converts an orb.Geometry to a FlatGeobuf writer.Geometry.
// Unsupported geometries return nil.
func encodeGeometry(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	t, ok := geometryType(geom)
	if !ok {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(t)

	switch v := geom.(type) {
	case orb.Point:
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		xy, _ := flattenXY([]orb.Point(v))
		g.SetXY(xy)

	case orb.LineString:
		xy, _ := flattenXY([]orb.Point(v))
		g.SetXY(xy)

	case orb.MultiLineString:
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flattenXY(parts...)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Polygon:
		xy, ends := polygonXYEnds(v)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(builder)
			pg.SetType(flattypes.GeometryTypePolygon)
			xy, ends := polygonXYEnds(poly)
			pg.SetXY(xy)
			pg.SetEnds(ends)
			parts = append(parts, *pg)
		}
		g.SetParts(parts)
	}

	return g
}

// flattenXY interleaves the coordinates of every part and returns the end
// offset of each part, counted in points.
func flattenXY(parts ...[]orb.Point) ([]float64, []uint32) {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	xy := make([]float64, 0, 2*n)
	ends := make([]uint32, 0, len(parts))
	for _, part := range parts {
		for _, p := range part {
			xy = append(xy, p[0], p[1])
		}
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

func polygonXYEnds(poly orb.Polygon) ([]float64, []uint32) {
	rings := make([][]orb.Point, len(poly))
	for i, r := range poly {
		rings[i] = r
	}
	return flattenXY(rings...)
}

// promote wraps single polygons and lines in their multi form when the layer
// type requires it, so every feature matches the header.
func promote(geom orb.Geometry, layer flattypes.GeometryType) orb.Geometry {
	switch v := geom.(type) {
	case orb.Polygon:
		if layer == flattypes.GeometryTypeMultiPolygon {
			return orb.MultiPolygon{v}
		}
	case orb.LineString:
		if layer == flattypes.GeometryTypeMultiLineString {
			return orb.MultiLineString{v}
		}
	}
	return geom
}

// decodeGeometry converts a stored geometry back to orb. Geometries stored
// without a type take the layer's. Unsupported types return nil.
func decodeGeometry(g *flattypes.Geometry, layer flattypes.GeometryType) orb.Geometry {
	t := g.Type()
	if t == flattypes.GeometryTypeUnknown {
		t = layer
	}

	switch t {
	case flattypes.GeometryTypePoint:
		if pts := readXY(g); len(pts) > 0 {
			return pts[0]
		}
		return orb.Point{}

	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(readXY(g))

	case flattypes.GeometryTypeLineString:
		return orb.LineString(readXY(g))

	case flattypes.GeometryTypeMultiLineString:
		parts := splitEnds(g)
		mls := make(orb.MultiLineString, len(parts))
		for i, p := range parts {
			mls[i] = p
		}
		return mls

	case flattypes.GeometryTypePolygon:
		return polygonFromEnds(g)

	case flattypes.GeometryTypeMultiPolygon:
		if g.PartsLength() == 0 {
			if g.XyLength() == 0 {
				return orb.MultiPolygon{}
			}
			return orb.MultiPolygon{polygonFromEnds(g)}
		}
		mp := make(orb.MultiPolygon, 0, g.PartsLength())
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				mp = append(mp, polygonFromEnds(&part))
			}
		}
		return mp
	}
	return nil
}

func readXY(g *flattypes.Geometry) []orb.Point {
	n := g.XyLength() / 2
	pts := make([]orb.Point, n)
	for i := range pts {
		pts[i] = orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)}
	}
	return pts
}

// splitEnds cuts the coordinates at the stored part ends. Without ends the
// whole array is one part.
func splitEnds(g *flattypes.Geometry) [][]orb.Point {
	pts := readXY(g)
	if g.EndsLength() == 0 {
		if len(pts) == 0 {
			return nil
		}
		return [][]orb.Point{pts}
	}

	parts := make([][]orb.Point, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := int(g.Ends(i))
		if end < start || end > len(pts) {
			end = len(pts)
		}
		parts = append(parts, pts[start:end:end])
		start = end
	}
	return parts
}

func polygonFromEnds(g *flattypes.Geometry) orb.Polygon {
	parts := splitEnds(g)
	poly := make(orb.Polygon, len(parts))
	for i, p := range parts {
		poly[i] = p
	}
	return poly
}
