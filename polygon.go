package shapefile

import (
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// polygonRing is one decoded polygon part together with its envelope.
type polygonRing struct {
	ring  orb.Ring
	bound orb.Bound
}

// assembleRings rebuilds polygons from the parts of a polygon record.
//
// Clockwise rings are shells and counter-clockwise rings are holes. Each hole
// belongs to the shell with the smallest envelope among those that contain it,
// which keeps islands inside a lake inside another island correctly nested.
// The result is an orb.Polygon when there is one shell and an
// orb.MultiPolygon otherwise.
func assembleRings(parts [][]orb.Point, st *decodeState) (orb.Geometry, error) {
	if len(parts) == 0 {
		return orb.Polygon{}, nil
	}

	rings := make([]polygonRing, len(parts))
	for i, p := range parts {
		r, err := closedRing(p)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		rings[i] = polygonRing{ring: r, bound: r.Bound()}
	}

	if len(rings) == 1 {
		return orb.Polygon{rings[0].ring}, nil
	}

	var shells, holes []int
	for i := range rings {
		if rings[i].ring.Orientation() == orb.CCW {
			holes = append(holes, i)
		} else {
			shells = append(shells, i)
		}
	}

	if len(shells) == 0 {
		st.log.Warn("polygon has no clockwise ring, reading every ring as a shell",
			"record", st.record, "rings", len(rings))
		shells, holes = holes, nil
	}

	owned := make(map[int][]int, len(shells))
	var orphans []int
	for _, h := range holes {
		owner := enclosingShell(rings, shells, h)
		if owner < 0 {
			orphans = append(orphans, h)
			continue
		}
		owned[owner] = append(owned[owner], h)
	}

	for _, h := range orphans {
		if st.strict {
			return nil, fmt.Errorf("%w: ring %d", ErrOrphanHole, h)
		}
		st.log.Warn("hole has no enclosing shell, reading it as a shell",
			"record", st.record, "ring", h)
		shells = append(shells, h)
	}
	slices.Sort(shells)

	polys := make(orb.MultiPolygon, 0, len(shells))
	for _, s := range shells {
		poly := make(orb.Polygon, 0, 1+len(owned[s]))
		poly = append(poly, rings[s].ring)
		for _, h := range owned[s] {
			poly = append(poly, rings[h].ring)
		}
		polys = append(polys, poly)
	}

	if len(polys) == 1 {
		return polys[0], nil
	}
	return polys, nil
}

// enclosingShell returns the index of the tightest shell around a hole, or -1.
// A shell qualifies when its envelope holds the hole's envelope and its ring
// holds the hole's first vertex; a vertex on the shell boundary counts.
func enclosingShell(rings []polygonRing, shells []int, hole int) int {
	h := rings[hole]
	best, bestArea := -1, math.Inf(1)
	for _, s := range shells {
		shell := rings[s]
		if !boundContains(shell.bound, h.bound) {
			continue
		}
		if !planar.RingContains(shell.ring, h.ring[0]) {
			continue
		}
		if area := boundArea(shell.bound); area < bestArea {
			best, bestArea = s, area
		}
	}
	return best
}

// closedRing returns p as a ring whose last point repeats the first.
func closedRing(p []orb.Point) (orb.Ring, error) {
	if n := distinctPoints(p); n < 3 {
		return nil, fmt.Errorf("%w: %d distinct points", ErrTopology, n)
	}
	r := orb.Ring(p)
	if r[0] != r[len(r)-1] {
		r = append(r[:len(r):len(r)], r[0])
	}
	return r, nil
}

func distinctPoints(p []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(p))
	for _, pt := range p {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

// polygonRings flattens a polygonal geometry into file order: every shell
// clockwise followed by its holes counter-clockwise. Rings are closed and
// copied, the input is left untouched.
func polygonRings(geom orb.Geometry) ([][]orb.Point, bool) {
	var polys []orb.Polygon
	switch v := geom.(type) {
	case orb.Ring:
		polys = []orb.Polygon{{v}}
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	case orb.Bound:
		polys = []orb.Polygon{boundToPolygon(v)}
	default:
		return nil, false
	}

	var rings [][]orb.Point
	for _, poly := range polys {
		for i, r := range poly {
			if len(r) == 0 {
				continue
			}
			want := orb.CCW
			if i == 0 {
				want = orb.CW
			}
			rings = append(rings, orientRing(r, want))
		}
	}
	return rings, true
}

// orientRing returns a closed copy of r wound in the wanted direction.
// Rings without area keep their order.
func orientRing(r orb.Ring, want orb.Orientation) []orb.Point {
	out := make([]orb.Point, 0, len(r)+1)
	out = append(out, r...)
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	if o := orb.Ring(out).Orientation(); o != 0 && o != want {
		slices.Reverse(out)
	}
	return out
}
