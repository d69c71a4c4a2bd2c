package shapefile

import (
	"github.com/paulmach/orb"
)

// shapeTypeOf returns the shape type an orb.Geometry is written as.
// Nil geometries are written as null records.
func shapeTypeOf(geom orb.Geometry, measured bool) (ShapeType, bool) {
	switch geom.(type) {
	case nil:
		return TypeNull, true
	case orb.Point:
		return TypePoint, true
	case orb.MultiPoint:
		return TypeMultiPoint, true
	case orb.LineString, orb.MultiLineString:
		if measured {
			return TypePolyLineM, true
		}
		return TypePolyLine, true
	case orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
		return TypePolygon, true
	default:
		return 0, false
	}
}

// lineParts returns the parts of a line geometry.
func lineParts(geom orb.Geometry) ([][]orb.Point, bool) {
	switch v := geom.(type) {
	case orb.LineString:
		return [][]orb.Point{v}, true
	case orb.MultiLineString:
		parts := make([][]orb.Point, 0, len(v))
		for _, ls := range v {
			parts = append(parts, ls)
		}
		return parts, true
	default:
		return nil, false
	}
}

// linesFromParts builds a LineString for one part and a MultiLineString otherwise.
func linesFromParts(parts [][]orb.Point) orb.Geometry {
	if len(parts) == 1 {
		return orb.LineString(parts[0])
	}
	mls := make(orb.MultiLineString, 0, len(parts))
	for _, p := range parts {
		mls = append(mls, orb.LineString(p))
	}
	return mls
}

func boundToPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{b.Min[0], b.Min[1]},
			{b.Min[0], b.Max[1]},
			{b.Max[0], b.Max[1]},
			{b.Max[0], b.Min[1]},
			{b.Min[0], b.Min[1]},
		},
	}
}

// emptyBound is the bound orb reports for geometries without points.
var emptyBound = orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}}

// pointsBound returns the envelope of a set of point slices.
func pointsBound(parts ...[]orb.Point) orb.Bound {
	b := emptyBound
	first := true
	for _, part := range parts {
		for _, p := range part {
			if first {
				b = orb.Bound{Min: p, Max: p}
				first = false
				continue
			}
			b = b.Extend(p)
		}
	}
	return b
}

// unionBound merges two envelopes, ignoring empty ones.
func unionBound(a, b orb.Bound) orb.Bound {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	return a.Union(b)
}

// boundContains reports whether inner lies within outer, edges included.
func boundContains(outer, inner orb.Bound) bool {
	return inner.Min[0] >= outer.Min[0] && inner.Max[0] <= outer.Max[0] &&
		inner.Min[1] >= outer.Min[1] && inner.Max[1] <= outer.Max[1]
}

func boundArea(b orb.Bound) float64 {
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
}
