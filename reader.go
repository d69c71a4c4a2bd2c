package shapefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Decoder reads records one at a time from a .shp stream.
type Decoder struct {
	c      *byteReader
	header *Header
	opts   *Options
	next   int // position of the next record, 1-based
}

// NewDecoder parses the file header from r. It fails with ErrUnsupportedType
// before reading any record when the declared shape type has no handler.
func NewDecoder(r io.Reader, opts *Options) (*Decoder, error) {
	c := newByteReader(r)
	h, err := readHeader(c, opts.logger())
	if err != nil {
		return nil, err
	}
	if !h.ShapeType.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, h.ShapeType)
	}
	return &Decoder{c: c, header: h, opts: opts, next: 1}, nil
}

// Header returns the parsed file header.
func (d *Decoder) Header() *Header {
	return d.header
}

// Next decodes the next record. It returns io.EOF when the stream ends on a
// record boundary. Other failures are *RecordError values; when the record
// content was read in full the decoder is positioned on the following record
// and Next may be called again to skip the bad one.
func (d *Decoder) Next() (*Record, error) {
	start := d.c.offset()
	position := d.next

	rh, err := readRecordHeader(d.c)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &RecordError{Record: position, Offset: start, Err: truncated(err, "record header")}
	}
	d.next++

	if rh.ContentLength < 2 {
		return nil, &RecordError{Record: position, Offset: start,
			Err: fmt.Errorf("%w: content length %d words", ErrInvalidData, rh.ContentLength)}
	}
	payload, err := d.c.readBlock(int64(rh.ContentLength) * 2)
	if err != nil {
		return nil, &RecordError{Record: position, Offset: start, Err: truncated(err, "record content")}
	}

	if int(rh.Number) != position {
		if d.opts.strict() {
			return nil, &RecordError{Record: position, Offset: start,
				Err: fmt.Errorf("%w: record number %d out of sequence", ErrInvalidData, rh.Number)}
		}
		d.opts.logger().Warn("record number out of sequence", "position", position, "number", rh.Number)
	}

	rec, err := d.decodePayload(rh, position, payload)
	if err != nil {
		return nil, &RecordError{Record: position, Offset: start, Err: err}
	}
	return rec, nil
}

func (d *Decoder) decodePayload(rh RecordHeader, position int, payload []byte) (*Record, error) {
	log := d.opts.logger()
	c := newByteReader(bytes.NewReader(payload))

	tag, err := c.readLEInt32()
	if err != nil {
		return nil, payloadError(err, d.header.ShapeType)
	}
	rec := &Record{Number: int(rh.Number), Type: ShapeType(tag)}
	if rec.Type == TypeNull {
		return rec, nil
	}

	handler := d.header.ShapeType
	if handler == TypeNull {
		handler = rec.Type
	}
	if rec.Type != handler {
		if d.opts.strict() {
			return nil, fmt.Errorf("%w: %s record in a %s file", ErrInvalidData, rec.Type, handler)
		}
		log.Warn("record shape type differs from file shape type",
			"record", position, "record_type", rec.Type, "file_type", handler)
	}

	st := &decodeState{
		log:     log,
		strict:  d.opts.strict(),
		record:  position,
		payload: int64(len(payload)),
	}
	rec.Geometry, rec.Measures, err = decodeShape(handler, c, st)
	if err != nil {
		return nil, err
	}

	if left := int64(len(payload)) - c.offset(); left > 0 {
		if d.opts.strict() {
			return nil, fmt.Errorf("%w: %d unread bytes after %s geometry", ErrInvalidData, left, handler)
		}
		log.Warn("record content longer than its geometry", "record", position, "unread_bytes", left)
	}
	return rec, nil
}

// ReadAll decodes every remaining record. The context is checked between
// records. On error no records are returned.
func (d *Decoder) ReadAll(ctx context.Context) ([]*Record, error) {
	var records []*Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := d.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// Reader provides read access to a shapefile held in memory, with random
// access when the .shx index is available.
type Reader struct {
	shp    []byte
	header *Header
	index  *Index
	opts   *Options
}

// NewReader creates a reader from a .shp file path. The sibling .shx file
// is loaded when present.
func NewReader(path string, opts *Options) (*Reader, error) {
	shp, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	shx, err := os.ReadFile(indexPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		shx = nil
	} else if err != nil {
		return nil, err
	}

	return NewReaderFromData(shp, shx, opts)
}

// indexPath returns the .shx path next to a .shp path, keeping the case of
// the extension.
func indexPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == strings.ToUpper(ext) && ext != "" {
		return base + ".SHX"
	}
	return base + ".shx"
}

// NewReaderFromData creates a reader from .shp bytes and optional .shx bytes.
func NewReaderFromData(shp, shx []byte, opts *Options) (*Reader, error) {
	d, err := NewDecoder(bytes.NewReader(shp), opts)
	if err != nil {
		return nil, err
	}

	r := &Reader{shp: shp, header: d.Header(), opts: opts}
	if shx != nil {
		if r.index, err = ReadIndex(bytes.NewReader(shx), opts); err != nil {
			return nil, fmt.Errorf("shapefile: reading index: %w", err)
		}
	}
	return r, nil
}

// Header returns the .shp file header.
func (r *Reader) Header() *Header {
	return r.header
}

// Index returns the parsed .shx index, or nil when the reader has none.
func (r *Reader) Index() *Index {
	return r.index
}

// Decoder returns a decoder positioned on the first record.
func (r *Reader) Decoder() (*Decoder, error) {
	return NewDecoder(bytes.NewReader(r.shp), r.opts)
}

// ReadAll decodes every record in file order.
func (r *Reader) ReadAll(ctx context.Context) ([]*Record, error) {
	d, err := r.Decoder()
	if err != nil {
		return nil, err
	}
	return d.ReadAll(ctx)
}

// ReadGeometries decodes every record and returns its geometry. Null records
// yield nil entries so positions match record numbers.
func (r *Reader) ReadGeometries(ctx context.Context) ([]orb.Geometry, error) {
	records, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	geometries := make([]orb.Geometry, 0, len(records))
	for _, rec := range records {
		geometries = append(geometries, rec.Geometry)
	}
	return geometries, nil
}

// ReadFeatures reads all non-null records as a FeatureCollection.
func (r *Reader) ReadFeatures(ctx context.Context) (*geojson.FeatureCollection, error) {
	records, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		if f := rec.Feature(); f != nil {
			fc.Append(f)
		}
	}
	return fc, nil
}

// Record decodes the i-th record (0-based) by seeking through the index.
func (r *Reader) Record(i int) (*Record, error) {
	if r.index == nil {
		return nil, ErrNoIndex
	}
	offset, err := r.index.OffsetOf(i)
	if err != nil {
		return nil, err
	}

	pos := int64(offset) * 2
	if pos < headerBytes || pos >= int64(len(r.shp)) {
		return nil, fmt.Errorf("%w: index offset %d words outside the file", ErrInvalidData, offset)
	}

	c := newByteReader(bytes.NewReader(r.shp[pos:]))
	c.off = pos
	d := &Decoder{c: c, header: r.header, opts: r.opts, next: i + 1}

	rec, err := d.Next()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no record at word offset %d", ErrInvalidData, offset)
	}
	return rec, err
}

// Search returns the records whose envelopes intersect bounds.
func (r *Reader) Search(ctx context.Context, bounds orb.Bound) ([]*Record, error) {
	records, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*Record
	for _, rec := range records {
		if rec.Geometry == nil {
			continue
		}
		if bounds.Intersects(rec.Bound()) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// Close releases the file contents held by the reader.
func (r *Reader) Close() error {
	r.shp = nil
	r.index = nil
	return nil
}
