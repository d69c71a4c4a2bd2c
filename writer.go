package shapefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// Write writes geometries to a .shp stream.
// All geometries must map to the same shape type; nil entries become null records.
func Write(w io.Writer, geometries []orb.Geometry, opts *Options) error {
	return WriteWithIndex(w, nil, geometries, opts)
}

// WriteWithIndex writes geometries to shp and the matching .shx index to shx.
// A nil shx skips the index.
func WriteWithIndex(shp, shx io.Writer, geometries []orb.Geometry, opts *Options) error {
	if len(geometries) == 0 {
		return ErrNilGeometry
	}

	records := make([]*Record, len(geometries))
	for i, g := range geometries {
		records[i] = &Record{Number: i + 1, Geometry: g}
	}
	return WriteRecords(shp, shx, records, opts)
}

// WriteFile writes geometries to <base>.shp and <base>.shx, where base is path
// without its extension.
func WriteFile(path string, geometries []orb.Geometry, opts *Options) (err error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))

	shp, err := os.Create(base + ".shp")
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, shp.Close()) }()

	shx, err := os.Create(base + ".shx")
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, shx.Close()) }()

	return WriteWithIndex(shp, shx, geometries, opts)
}

// WriteRecords writes records to shp and, when shx is not nil, the index to
// shx. Records are renumbered by position. Line records carrying measures, or
// any line records when opts.Measured is set, are written as PolyLineM.
//
// The header needs the bounding box and length of the whole file, so every
// record is laid out before the first byte is written.
func WriteRecords(shp, shx io.Writer, records []*Record, opts *Options) error {
	if len(records) == 0 {
		return ErrNilGeometry
	}

	shapeType, err := fileShapeType(records, opts.measured() || hasMeasures(records))
	if err != nil {
		return err
	}
	if err := checkMeasures(shapeType, records, opts); err != nil {
		return err
	}

	contents := make([]*shapeContent, len(records))
	lengths := make([]int, len(records))
	bound := emptyBound
	for i, rec := range records {
		if rec == nil {
			rec = &Record{}
		}
		s, err := prepareShape(shapeType, rec)
		if err != nil {
			return fmt.Errorf("shapefile: record %d: %w", i+1, err)
		}
		contents[i] = s
		lengths[i] = s.length()
		if s.typ != TypeNull {
			bound = unionBound(bound, s.bound)
		}
	}

	if err := checkFileLength(lengths); err != nil {
		return err
	}

	h := newHeader(shapeType, bound, lengths)
	if shapeType == TypePolyLineM {
		h.MRange = measureRange(contents)
	}

	index, err := writeMain(shp, h, contents, lengths)
	if err != nil {
		return err
	}
	if shx == nil {
		return nil
	}

	bw := bufio.NewWriter(shx)
	if err := WriteIndex(bw, h, index); err != nil {
		return fmt.Errorf("shapefile: writing index: %w", err)
	}
	return bw.Flush()
}

// writeMain writes the header and records, returning the index entries that
// locate each record.
func writeMain(w io.Writer, h *Header, contents []*shapeContent, lengths []int) ([]IndexRecord, error) {
	bw := bufio.NewWriter(w)
	c := newByteWriter(bw)

	writeHeader(c, h)

	index := make([]IndexRecord, len(contents))
	offset := headerWords
	for i, s := range contents {
		index[i] = IndexRecord{Offset: int32(offset), ContentLength: int32(lengths[i])}
		writeRecordHeader(c, RecordHeader{Number: int32(i + 1), ContentLength: int32(lengths[i])})
		s.write(c)
		offset += recordHeaderWords + lengths[i]
	}

	if c.err != nil {
		return nil, fmt.Errorf("shapefile: writing records: %w", c.err)
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return index, nil
}

// fileShapeType picks the file shape type from the first non-null record and
// rejects records of any other type.
func fileShapeType(records []*Record, measured bool) (ShapeType, error) {
	fileType := TypeNull
	for i, rec := range records {
		if rec == nil || rec.Geometry == nil {
			continue
		}
		t, ok := shapeTypeOf(rec.Geometry, measured)
		if !ok {
			return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, rec.Geometry)
		}
		if fileType == TypeNull {
			fileType = t
			continue
		}
		if t != fileType {
			return 0, fmt.Errorf("%w: record %d is %s in a %s file", ErrMixedGeometry, i+1, t, fileType)
		}
	}
	return fileType, nil
}

func hasMeasures(records []*Record) bool {
	for _, rec := range records {
		if rec != nil && rec.Measures != nil {
			return true
		}
	}
	return false
}

// checkMeasures reports measures that a file of shapeType cannot hold.
// They are dropped with a warning, or rejected in strict mode.
func checkMeasures(shapeType ShapeType, records []*Record, opts *Options) error {
	if shapeType == TypePolyLineM {
		return nil
	}
	log := opts.logger()
	for i, rec := range records {
		if rec == nil || rec.Measures == nil {
			continue
		}
		if opts.strict() {
			return fmt.Errorf("%w: record %d: measures in a %s file", ErrInvalidData, i+1, shapeType)
		}
		log.Warn("ignoring measures", "record", i+1, "file_type", shapeType)
	}
	if opts.measured() && shapeType != TypeNull {
		if opts.strict() {
			return fmt.Errorf("%w: measured output requested for a %s file", ErrInvalidData, shapeType)
		}
		log.Warn("ignoring measured option", "file_type", shapeType)
	}
	return nil
}

// checkFileLength rejects files whose length in words does not fit the
// header's int32 length field. Record offsets never exceed it.
func checkFileLength(lengths []int) error {
	total := int64(headerWords)
	for _, n := range lengths {
		total += int64(recordHeaderWords) + int64(n)
		if total > math.MaxInt32 {
			return fmt.Errorf("%w: file exceeds %d words", ErrInvalidData, math.MaxInt32)
		}
	}
	return nil
}

func measureRange(contents []*shapeContent) [2]float64 {
	var r [2]float64
	first := true
	for _, s := range contents {
		if s.typ != TypePolyLineM || s.numPoints() == 0 {
			continue
		}
		mr := s.measureRange()
		if first {
			r = mr
			first = false
			continue
		}
		if mr[0] < r[0] {
			r[0] = mr[0]
		}
		if mr[1] > r[1] {
			r[1] = mr[1]
		}
	}
	return r
}
