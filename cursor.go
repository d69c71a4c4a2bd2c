package shapefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
)

// byteReader reads shapefile fields. Every method names the byte order it
// uses; there is no mode to toggle.
type byteReader struct {
	r   io.Reader
	off int64
	buf [8]byte
}

func newByteReader(r io.Reader) *byteReader {
	return &byteReader{r: r}
}

// offset returns the number of bytes consumed so far.
func (c *byteReader) offset() int64 {
	return c.off
}

// fill reads exactly n bytes into c.buf. A clean end of stream before the
// first byte is reported as io.EOF, a partial read as io.ErrUnexpectedEOF.
func (c *byteReader) fill(n int) error {
	read, err := io.ReadFull(c.r, c.buf[:n])
	c.off += int64(read)
	return err
}

func (c *byteReader) readBEInt32() (int32, error) {
	if err := c.fill(4); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(c.buf[:4])), nil
}

func (c *byteReader) readLEInt32() (int32, error) {
	if err := c.fill(4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(c.buf[:4])), nil
}

func (c *byteReader) readLEFloat64() (float64, error) {
	if err := c.fill(8); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(c.buf[:8])), nil
}

// readLEPoint reads an x,y pair.
func (c *byteReader) readLEPoint() (orb.Point, error) {
	x, err := c.readLEFloat64()
	if err != nil {
		return orb.Point{}, err
	}
	y, err := c.readLEFloat64()
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x, y}, nil
}

// readLEBound reads xmin, ymin, xmax, ymax.
func (c *byteReader) readLEBound() (orb.Bound, error) {
	lo, err := c.readLEPoint()
	if err != nil {
		return orb.Bound{}, err
	}
	hi, err := c.readLEPoint()
	if err != nil {
		return orb.Bound{}, err
	}
	return orb.Bound{Min: lo, Max: hi}, nil
}

// readLERange reads a min,max pair such as a measure range.
func (c *byteReader) readLERange() ([2]float64, error) {
	p, err := c.readLEPoint()
	return [2]float64{p[0], p[1]}, err
}

// readBlock reads exactly n bytes. Memory grows with the data actually read,
// so a corrupt length cannot force a large allocation up front.
func (c *byteReader) readBlock(n int64) ([]byte, error) {
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, c.r, n)
	c.off += copied
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *byteReader) skip(n int64) error {
	copied, err := io.CopyN(io.Discard, c.r, n)
	c.off += copied
	if err == io.EOF && copied > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}

// truncated maps an end of stream in the middle of a structure to ErrTruncated.
func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %w", ErrTruncated, what, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("shapefile: reading %s: %w", what, err)
}

// byteWriter writes shapefile fields. The first write error is kept and all
// later writes become no-ops, so callers check err once at the end.
type byteWriter struct {
	w   io.Writer
	off int64
	err error
	buf [8]byte
}

func newByteWriter(w io.Writer) *byteWriter {
	return &byteWriter{w: w}
}

func (c *byteWriter) write(b []byte) {
	if c.err != nil {
		return
	}
	n, err := c.w.Write(b)
	c.off += int64(n)
	c.err = err
}

func (c *byteWriter) writeBEInt32(v int32) {
	binary.BigEndian.PutUint32(c.buf[:4], uint32(v))
	c.write(c.buf[:4])
}

func (c *byteWriter) writeLEInt32(v int32) {
	binary.LittleEndian.PutUint32(c.buf[:4], uint32(v))
	c.write(c.buf[:4])
}

func (c *byteWriter) writeLEFloat64(v float64) {
	binary.LittleEndian.PutUint64(c.buf[:8], math.Float64bits(v))
	c.write(c.buf[:8])
}

func (c *byteWriter) writeLEPoint(p orb.Point) {
	c.writeLEFloat64(p[0])
	c.writeLEFloat64(p[1])
}

func (c *byteWriter) writeLEBound(b orb.Bound) {
	c.writeLEPoint(b.Min)
	c.writeLEPoint(b.Max)
}

func (c *byteWriter) writeZeros(n int) {
	var zero [8]byte
	for n > 0 {
		k := n
		if k > len(zero) {
			k = len(zero)
		}
		c.write(zero[:k])
		n -= k
	}
}
