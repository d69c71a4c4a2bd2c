package shapefile

import (
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RecordHeader precedes every record payload in the .shp file.
type RecordHeader struct {
	Number        int32 // 1-based record number
	ContentLength int32 // Payload length in 16-bit words, excluding this header
}

// ReadRecordHeader parses an 8-byte big-endian record header.
func ReadRecordHeader(r io.Reader) (RecordHeader, error) {
	rh, err := readRecordHeader(newByteReader(r))
	if err != nil {
		return RecordHeader{}, truncated(err, "record header")
	}
	return rh, nil
}

// WriteRecordHeader writes an 8-byte big-endian record header.
func WriteRecordHeader(w io.Writer, rh RecordHeader) error {
	c := newByteWriter(w)
	writeRecordHeader(c, rh)
	return c.err
}

func readRecordHeader(c *byteReader) (RecordHeader, error) {
	number, err := c.readBEInt32()
	if err != nil {
		return RecordHeader{}, err
	}
	length, err := c.readBEInt32()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return RecordHeader{}, err
	}
	return RecordHeader{Number: number, ContentLength: length}, nil
}

func writeRecordHeader(c *byteWriter, rh RecordHeader) {
	c.writeBEInt32(rh.Number)
	c.writeBEInt32(rh.ContentLength)
}

// Record is one decoded shape.
type Record struct {
	Number   int          // 1-based record number
	Type     ShapeType    // Shape type tag of the payload
	Geometry orb.Geometry // Nil for null shapes
	Measures [][]float64  // Per-part measures, PolyLineM only
}

// Bound returns the envelope of the record's geometry.
// Null records return an empty bound.
func (r *Record) Bound() orb.Bound {
	if r.Geometry == nil {
		return emptyBound
	}
	return r.Geometry.Bound()
}

// Feature converts the record to a GeoJSON feature. The record number is the
// feature ID and the "record" property; "shape_type" holds the type name and
// "measures" the per-part measures when present. Null records return nil.
func (r *Record) Feature() *geojson.Feature {
	if r.Geometry == nil {
		return nil
	}
	f := geojson.NewFeature(r.Geometry)
	f.ID = r.Number
	f.Properties["record"] = r.Number
	f.Properties["shape_type"] = r.Type.String()
	if r.Measures != nil {
		f.Properties["measures"] = r.Measures
	}
	return f
}
