package shapefile

import (
	"errors"
	"fmt"
	"io"
)

// IndexRecord locates one record in the .shp file.
type IndexRecord struct {
	Offset        int32 // Offset of the record header, in 16-bit words
	ContentLength int32 // Length of the record content, in 16-bit words
}

// Index is the parsed content of a .shx file.
type Index struct {
	Header  *Header
	Records []IndexRecord
}

// RecordCount returns the number of records listed in the index.
func (idx *Index) RecordCount() int {
	return len(idx.Records)
}

// OffsetOf returns the word offset of the i-th record (0-based) in the .shp file.
func (idx *Index) OffsetOf(i int) (int32, error) {
	if i < 0 || i >= len(idx.Records) {
		return 0, fmt.Errorf("shapefile: index record %d out of range [0,%d)", i, len(idx.Records))
	}
	return idx.Records[i].Offset, nil
}

// ReadIndex parses a .shx stream. Entries are read until the stream ends on
// an entry boundary; a partial trailing entry is reported as ErrTruncated.
func ReadIndex(r io.Reader, opts *Options) (*Index, error) {
	c := newByteReader(r)

	h, err := readHeader(c, opts.logger())
	if err != nil {
		return nil, err
	}

	idx := &Index{Header: h}
	for {
		offset, err := c.readBEInt32()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, truncated(err, "index record")
		}
		length, err := c.readBEInt32()
		if err != nil {
			return nil, truncated(err, "index record")
		}
		idx.Records = append(idx.Records, IndexRecord{Offset: offset, ContentLength: length})
	}

	if expected := int(h.FileLength-headerWords) / indexRecordWords; expected != len(idx.Records) {
		opts.logger().Warn("index length does not match entry count",
			"declared", expected, "read", len(idx.Records))
	}

	return idx, nil
}

// WriteIndex writes a .shx stream for the given main file header and entries.
func WriteIndex(w io.Writer, h *Header, records []IndexRecord) error {
	c := newByteWriter(w)
	writeHeader(c, h.indexHeader(len(records)))
	for _, rec := range records {
		c.writeBEInt32(rec.Offset)
		c.writeBEInt32(rec.ContentLength)
	}
	return c.err
}
