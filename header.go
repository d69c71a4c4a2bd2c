package shapefile

import (
	"io"
	"log/slog"

	"github.com/paulmach/orb"
)

// Header is the fixed 100-byte header shared by .shp and .shx files.
type Header struct {
	FileCode   int32      // Magic number, 9994 in valid files
	FileLength int32      // Total file length in 16-bit words, header included
	Version    int32      // Format version, 1000 in valid files
	ShapeType  ShapeType  // Shape type of every non-null record
	Bound      orb.Bound  // Bounding box of all records
	ZRange     [2]float64 // Z min/max, zero unless the file has Z values
	MRange     [2]float64 // M min/max, zero unless the file is measured
}

// ReadHeader parses a 100-byte file header. A wrong file code or version is
// logged as a warning and does not fail the parse.
func ReadHeader(r io.Reader, opts *Options) (*Header, error) {
	return readHeader(newByteReader(r), opts.logger())
}

// WriteHeader serializes h as a 100-byte file header.
func WriteHeader(w io.Writer, h *Header) error {
	c := newByteWriter(w)
	writeHeader(c, h)
	return c.err
}

func readHeader(c *byteReader, log *slog.Logger) (*Header, error) {
	h := &Header{}
	var err error

	if h.FileCode, err = c.readBEInt32(); err != nil {
		return nil, truncated(err, "file header")
	}
	if err = c.skip(5 * 4); err != nil {
		return nil, truncated(err, "file header")
	}
	if h.FileLength, err = c.readBEInt32(); err != nil {
		return nil, truncated(err, "file header")
	}
	if h.Version, err = c.readLEInt32(); err != nil {
		return nil, truncated(err, "file header")
	}
	shapeType, err := c.readLEInt32()
	if err != nil {
		return nil, truncated(err, "file header")
	}
	h.ShapeType = ShapeType(shapeType)
	if h.Bound, err = c.readLEBound(); err != nil {
		return nil, truncated(err, "file header")
	}
	if h.ZRange, err = c.readLERange(); err != nil {
		return nil, truncated(err, "file header")
	}
	if h.MRange, err = c.readLERange(); err != nil {
		return nil, truncated(err, "file header")
	}

	if h.FileCode != fileCode {
		log.Warn("unexpected file code", "got", h.FileCode, "want", fileCode)
	}
	if h.Version != fileVersion {
		log.Warn("unexpected file version", "got", h.Version, "want", fileVersion)
	}

	return h, nil
}

func writeHeader(c *byteWriter, h *Header) {
	c.writeBEInt32(h.FileCode)
	c.writeZeros(5 * 4)
	c.writeBEInt32(h.FileLength)
	c.writeLEInt32(h.Version)
	c.writeLEInt32(int32(h.ShapeType))
	c.writeLEBound(h.Bound)
	c.writeLEFloat64(h.ZRange[0])
	c.writeLEFloat64(h.ZRange[1])
	c.writeLEFloat64(h.MRange[0])
	c.writeLEFloat64(h.MRange[1])
}

// newHeader builds the header for a file of the given type, bounds and
// record content lengths (in words).
func newHeader(shapeType ShapeType, bound orb.Bound, contentLengths []int) *Header {
	length := headerWords
	for _, n := range contentLengths {
		length += recordHeaderWords + n
	}
	if bound.IsEmpty() {
		bound = orb.Bound{}
	}
	return &Header{
		FileCode:   fileCode,
		FileLength: int32(length),
		Version:    fileVersion,
		ShapeType:  shapeType,
		Bound:      bound,
	}
}

// indexHeader derives the .shx header from the main file header.
func (h *Header) indexHeader(records int) *Header {
	ih := *h
	ih.FileLength = int32(headerWords + indexRecordWords*records)
	return &ih
}
