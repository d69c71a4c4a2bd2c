package shapefile

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/paulmach/orb"
)

func TestByteReader_MixedEndianness(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x27, 0x0a, // 9994 big-endian
		0xe8, 0x03, 0x00, 0x00, // 1000 little-endian
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf8, 0x3f, // 1.5 little-endian
	}

	c := newByteReader(bytes.NewReader(data))

	be, err := c.readBEInt32()
	if err != nil || be != 9994 {
		t.Fatalf("readBEInt32: expected 9994, got %d (%v)", be, err)
	}
	le, err := c.readLEInt32()
	if err != nil || le != 1000 {
		t.Fatalf("readLEInt32: expected 1000, got %d (%v)", le, err)
	}
	f, err := c.readLEFloat64()
	if err != nil || f != 1.5 {
		t.Fatalf("readLEFloat64: expected 1.5, got %f (%v)", f, err)
	}
	if c.offset() != int64(len(data)) {
		t.Errorf("expected offset %d, got %d", len(data), c.offset())
	}
}

func TestByteReader_EndOfStream(t *testing.T) {
	c := newByteReader(bytes.NewReader(nil))
	if _, err := c.readBEInt32(); err != io.EOF {
		t.Errorf("expected io.EOF on empty stream, got %v", err)
	}

	c = newByteReader(bytes.NewReader([]byte{1, 2}))
	if _, err := c.readBEInt32(); err != io.ErrUnexpectedEOF {
		t.Errorf("expected io.ErrUnexpectedEOF on partial field, got %v", err)
	}
	if c.offset() != 2 {
		t.Errorf("expected offset 2 after partial read, got %d", c.offset())
	}
}

func TestByteReader_ReadBlock(t *testing.T) {
	c := newByteReader(bytes.NewReader([]byte{1, 2, 3, 4}))

	block, err := c.readBlock(3)
	if err != nil {
		t.Fatalf("readBlock failed: %v", err)
	}
	if !bytes.Equal(block, []byte{1, 2, 3}) {
		t.Errorf("unexpected block %v", block)
	}

	if _, err := c.readBlock(8); err != io.ErrUnexpectedEOF {
		t.Errorf("expected io.ErrUnexpectedEOF for short block, got %v", err)
	}
}

func TestByteWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newByteWriter(&buf)
	w.writeBEInt32(9994)
	w.writeLEInt32(-7)
	w.writeLEBound(orb.Bound{Min: orb.Point{-1, -2}, Max: orb.Point{3, 4}})
	w.writeZeros(12)
	if w.err != nil {
		t.Fatalf("write failed: %v", w.err)
	}
	if buf.Len() != 4+4+32+12 {
		t.Fatalf("expected %d bytes, got %d", 4+4+32+12, buf.Len())
	}
	if w.off != int64(buf.Len()) {
		t.Errorf("expected offset %d, got %d", buf.Len(), w.off)
	}

	c := newByteReader(&buf)
	if v, _ := c.readBEInt32(); v != 9994 {
		t.Errorf("expected 9994, got %d", v)
	}
	if v, _ := c.readLEInt32(); v != -7 {
		t.Errorf("expected -7, got %d", v)
	}
	b, err := c.readLEBound()
	if err != nil {
		t.Fatalf("readLEBound failed: %v", err)
	}
	if b != (orb.Bound{Min: orb.Point{-1, -2}, Max: orb.Point{3, 4}}) {
		t.Errorf("unexpected bound %v", b)
	}
	if err := c.skip(12); err != nil {
		t.Errorf("skip failed: %v", err)
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestByteWriter_StickyError(t *testing.T) {
	w := newByteWriter(&failingWriter{after: 1})
	w.writeBEInt32(1)
	w.writeBEInt32(2)
	w.writeBEInt32(3)

	if w.err == nil || w.err.Error() != "disk full" {
		t.Errorf("expected sticky write error, got %v", w.err)
	}
	if w.off != 4 {
		t.Errorf("expected 4 bytes written before failure, got %d", w.off)
	}
}

func TestTruncated(t *testing.T) {
	for _, cause := range []error{io.EOF, io.ErrUnexpectedEOF} {
		err := truncated(cause, "file header")
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("expected ErrTruncated for %v, got %v", cause, err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("expected io.ErrUnexpectedEOF for %v, got %v", cause, err)
		}
	}

	other := errors.New("permission denied")
	err := truncated(other, "file header")
	if errors.Is(err, ErrTruncated) {
		t.Error("expected non-EOF errors not to be reported as truncation")
	}
	if !errors.Is(err, other) {
		t.Error("expected the cause to be wrapped")
	}
}
