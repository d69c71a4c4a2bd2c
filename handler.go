package shapefile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/orb"
)

// decodeState carries per-record context into the shape decoders.
type decodeState struct {
	log     *slog.Logger
	strict  bool
	record  int
	payload int64 // payload length in bytes
}

// need fails when fewer than n payload bytes remain after the cursor.
func (st *decodeState) need(c *byteReader, n int64) error {
	if left := st.payload - c.offset(); n > left {
		return fmt.Errorf("%w: geometry needs %d bytes, %d left in record", ErrInvalidData, n, left)
	}
	return nil
}

// decodeShape decodes the payload that follows the shape type tag with the
// handler registered for t. Measures are returned for PolyLineM only.
func decodeShape(t ShapeType, c *byteReader, st *decodeState) (orb.Geometry, [][]float64, error) {
	var (
		geom     orb.Geometry
		measures [][]float64
		err      error
	)

	switch t {
	case TypeNull:
		return nil, nil, nil

	case TypePoint:
		geom, err = c.readLEPoint()

	case TypeMultiPoint:
		geom, err = readMultiPoint(c, st)

	case TypePolyLine:
		var block *partsBlock
		if block, err = readPartsBlock(c, st); err == nil {
			geom = linesFromParts(block.split())
		}

	case TypePolygon:
		var block *partsBlock
		if block, err = readPartsBlock(c, st); err == nil {
			geom, err = assembleRings(block.split(), st)
		}

	case TypePolyLineM:
		var block *partsBlock
		if block, err = readPartsBlock(c, st); err == nil {
			geom = linesFromParts(block.split())
			measures, err = readMeasures(c, st, block)
		}

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	if err != nil {
		return nil, nil, payloadError(err, t)
	}
	return geom, measures, nil
}

// payloadError reports a payload that ends before its geometry does.
func payloadError(err error, t ShapeType) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: record content ends inside %s geometry", ErrInvalidData, t)
	}
	return err
}

func readMultiPoint(c *byteReader, st *decodeState) (orb.MultiPoint, error) {
	if _, err := c.readLEBound(); err != nil {
		return nil, err
	}
	n, err := c.readLEInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative point count %d", ErrInvalidData, n)
	}
	if err := st.need(c, 16*int64(n)); err != nil {
		return nil, err
	}
	mp := make(orb.MultiPoint, n)
	for i := range mp {
		if mp[i], err = c.readLEPoint(); err != nil {
			return nil, err
		}
	}
	return mp, nil
}

// partsBlock is the shared layout of PolyLine, Polygon and PolyLineM records:
// part start offsets into one flat point array.
type partsBlock struct {
	parts  []int32
	points []orb.Point
}

func readPartsBlock(c *byteReader, st *decodeState) (*partsBlock, error) {
	// The stored box is ignored; envelopes are recomputed from the points.
	if _, err := c.readLEBound(); err != nil {
		return nil, err
	}
	numParts, err := c.readLEInt32()
	if err != nil {
		return nil, err
	}
	numPoints, err := c.readLEInt32()
	if err != nil {
		return nil, err
	}
	if numParts < 0 || numPoints < 0 {
		return nil, fmt.Errorf("%w: negative part or point count (%d, %d)", ErrInvalidData, numParts, numPoints)
	}
	if err := st.need(c, 4*int64(numParts)+16*int64(numPoints)); err != nil {
		return nil, err
	}

	b := &partsBlock{
		parts:  make([]int32, numParts),
		points: make([]orb.Point, numPoints),
	}
	for i := range b.parts {
		if b.parts[i], err = c.readLEInt32(); err != nil {
			return nil, err
		}
	}
	for i := range b.parts {
		start := b.parts[i]
		switch {
		case i == 0 && start != 0:
			return nil, fmt.Errorf("%w: first part starts at %d", ErrInvalidData, start)
		case start < 0 || start >= numPoints:
			return nil, fmt.Errorf("%w: part %d starts at %d of %d points", ErrInvalidData, i, start, numPoints)
		case i > 0 && start < b.parts[i-1]:
			return nil, fmt.Errorf("%w: part %d starts before part %d", ErrInvalidData, i, i-1)
		}
	}
	for i := range b.points {
		if b.points[i], err = c.readLEPoint(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// partRange returns the point range [start, end) of part i.
func (b *partsBlock) partRange(i int) (start, end int) {
	start = int(b.parts[i])
	if i == len(b.parts)-1 {
		end = len(b.points)
	} else {
		end = int(b.parts[i+1])
	}
	return start, end
}

func (b *partsBlock) split() [][]orb.Point {
	out := make([][]orb.Point, len(b.parts))
	for i := range b.parts {
		start, end := b.partRange(i)
		out[i] = b.points[start:end:end]
	}
	return out
}

func readMeasures(c *byteReader, st *decodeState, b *partsBlock) ([][]float64, error) {
	if _, err := c.readLERange(); err != nil {
		return nil, err
	}
	if err := st.need(c, 8*int64(len(b.points))); err != nil {
		return nil, err
	}
	flat := make([]float64, len(b.points))
	var err error
	for i := range flat {
		if flat[i], err = c.readLEFloat64(); err != nil {
			return nil, err
		}
	}
	out := make([][]float64, len(b.parts))
	for i := range b.parts {
		start, end := b.partRange(i)
		out[i] = flat[start:end:end]
	}
	return out, nil
}

// shapeContent is a geometry prepared for writing: rings are closed and
// oriented, parts are flattened, and the envelope is computed from the
// points that will be written.
type shapeContent struct {
	typ      ShapeType
	point    orb.Point
	parts    [][]orb.Point // MultiPoint uses a single part
	measures [][]float64
	bound    orb.Bound
}

// prepareShape checks that rec fits a file of type t and lays it out.
func prepareShape(t ShapeType, rec *Record) (*shapeContent, error) {
	if rec.Geometry == nil {
		return &shapeContent{typ: TypeNull}, nil
	}

	s := &shapeContent{typ: t}
	ok := false
	switch t {
	case TypePoint:
		s.point, ok = rec.Geometry.(orb.Point)

	case TypeMultiPoint:
		var mp orb.MultiPoint
		if mp, ok = rec.Geometry.(orb.MultiPoint); ok {
			s.parts = [][]orb.Point{mp}
		}

	case TypePolyLine:
		if s.parts, ok = lineParts(rec.Geometry); ok {
			s.parts, _ = dropEmptyParts(s.parts, nil)
			if len(s.parts) == 0 {
				return nil, fmt.Errorf("%w: line has no points", ErrInvalidData)
			}
		}

	case TypePolyLineM:
		if s.parts, ok = lineParts(rec.Geometry); ok {
			m, err := partMeasures(s.parts, rec.Measures)
			if err != nil {
				return nil, err
			}
			s.parts, s.measures = dropEmptyParts(s.parts, m)
			if len(s.parts) == 0 {
				return nil, fmt.Errorf("%w: line has no points", ErrInvalidData)
			}
		}

	case TypePolygon:
		if s.parts, ok = polygonRings(rec.Geometry); ok {
			for i, r := range s.parts {
				if n := distinctPoints(r); n < 3 {
					return nil, fmt.Errorf("%w: ring %d has %d distinct points", ErrTopology, i, n)
				}
			}
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %T in a %s file", ErrMixedGeometry, rec.Geometry, t)
	}
	if t == TypePoint {
		s.bound = s.point.Bound()
	} else {
		s.bound = pointsBound(s.parts...)
	}
	return s, nil
}

// partMeasures validates per-part measures against the line parts.
// Missing measures are written as zeros.
func partMeasures(parts [][]orb.Point, measures [][]float64) ([][]float64, error) {
	if measures == nil {
		out := make([][]float64, len(parts))
		for i, p := range parts {
			out[i] = make([]float64, len(p))
		}
		return out, nil
	}
	if len(measures) != len(parts) {
		return nil, fmt.Errorf("%w: %d measure parts for %d line parts", ErrInvalidData, len(measures), len(parts))
	}
	for i, p := range parts {
		if len(measures[i]) != len(p) {
			return nil, fmt.Errorf("%w: part %d has %d measures for %d points", ErrInvalidData, i, len(measures[i]), len(p))
		}
	}
	return measures, nil
}

// dropEmptyParts removes parts without points, and their measures, since
// a part must start before the end of the point array.
func dropEmptyParts(parts [][]orb.Point, measures [][]float64) ([][]orb.Point, [][]float64) {
	keptParts := parts[:0:0]
	var keptMeasures [][]float64
	for i, p := range parts {
		if len(p) == 0 {
			continue
		}
		keptParts = append(keptParts, p)
		if measures != nil {
			keptMeasures = append(keptMeasures, measures[i])
		}
	}
	return keptParts, keptMeasures
}

func (s *shapeContent) numPoints() int {
	n := 0
	for _, p := range s.parts {
		n += len(p)
	}
	return n
}

// length returns the payload length in 16-bit words.
func (s *shapeContent) length() int {
	switch s.typ {
	case TypeNull:
		return 2
	case TypePoint:
		return 10
	case TypeMultiPoint:
		return 20 + 8*s.numPoints()
	case TypePolyLine, TypePolygon:
		return 22 + 2*len(s.parts) + 8*s.numPoints()
	case TypePolyLineM:
		return 30 + 2*len(s.parts) + 12*s.numPoints()
	default:
		return 0
	}
}

// write emits the payload, shape type tag first.
func (s *shapeContent) write(c *byteWriter) {
	c.writeLEInt32(int32(s.typ))

	switch s.typ {
	case TypeNull:

	case TypePoint:
		c.writeLEPoint(s.point)

	case TypeMultiPoint:
		c.writeLEBound(s.envelope())
		c.writeLEInt32(int32(s.numPoints()))
		for _, p := range s.parts[0] {
			c.writeLEPoint(p)
		}

	case TypePolyLine, TypePolygon, TypePolyLineM:
		c.writeLEBound(s.envelope())
		c.writeLEInt32(int32(len(s.parts)))
		c.writeLEInt32(int32(s.numPoints()))
		start := 0
		for _, p := range s.parts {
			c.writeLEInt32(int32(start))
			start += len(p)
		}
		for _, part := range s.parts {
			for _, p := range part {
				c.writeLEPoint(p)
			}
		}
		if s.typ == TypePolyLineM {
			mr := s.measureRange()
			c.writeLEFloat64(mr[0])
			c.writeLEFloat64(mr[1])
			for _, part := range s.measures {
				for _, m := range part {
					c.writeLEFloat64(m)
				}
			}
		}
	}
}

// envelope returns the bound to store in the payload; zero when empty.
func (s *shapeContent) envelope() orb.Bound {
	if s.bound.IsEmpty() {
		return orb.Bound{}
	}
	return s.bound
}

func (s *shapeContent) measureRange() [2]float64 {
	var r [2]float64
	first := true
	for _, part := range s.measures {
		for _, m := range part {
			if first {
				r = [2]float64{m, m}
				first = false
				continue
			}
			if m < r[0] {
				r[0] = m
			}
			if m > r[1] {
				r[1] = m
			}
		}
	}
	return r
}

// ContentLength returns the payload length in 16-bit words that geom
// occupies in a file of type t.
func ContentLength(t ShapeType, geom orb.Geometry) (int, error) {
	s, err := prepareShape(t, &Record{Geometry: geom})
	if err != nil {
		return 0, err
	}
	return s.length(), nil
}
