package shapefile

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// quietOptions discards warnings.
func quietOptions() *Options {
	return &Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// recordingOptions writes warnings to buf.
func recordingOptions(buf *bytes.Buffer) *Options {
	return &Options{Logger: slog.New(slog.NewTextHandler(buf, nil))}
}

// rawRecord is a record payload with an explicit record number.
type rawRecord struct {
	number  int32
	payload []byte
}

// rawFile assembles a .shp stream from hand-built payloads.
func rawFile(t *testing.T, shapeType ShapeType, records ...rawRecord) []byte {
	t.Helper()

	length := headerWords
	for _, rec := range records {
		length += recordHeaderWords + len(rec.payload)/2
	}

	var buf bytes.Buffer
	h := &Header{FileCode: fileCode, FileLength: int32(length), Version: fileVersion, ShapeType: shapeType}
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	for _, rec := range records {
		rh := RecordHeader{Number: rec.number, ContentLength: int32(len(rec.payload) / 2)}
		if err := WriteRecordHeader(&buf, rh); err != nil {
			t.Fatalf("WriteRecordHeader failed: %v", err)
		}
		buf.Write(rec.payload)
	}
	return buf.Bytes()
}

// pointPayload builds a Point record payload, optionally padded with zero bytes.
func pointPayload(tag ShapeType, x, y float64, padding int) []byte {
	var buf bytes.Buffer
	c := newByteWriter(&buf)
	c.writeLEInt32(int32(tag))
	if tag != TypeNull {
		c.writeLEFloat64(x)
		c.writeLEFloat64(y)
	}
	c.writeZeros(padding)
	return buf.Bytes()
}

func TestShapeTypeString(t *testing.T) {
	tests := []struct {
		typ      ShapeType
		expected string
	}{
		{TypeNull, "Null"},
		{TypePoint, "Point"},
		{TypePolyLine, "PolyLine"},
		{TypePolygon, "Polygon"},
		{TypeMultiPoint, "MultiPoint"},
		{TypePolyLineM, "PolyLineM"},
		{ShapeType(9), "ShapeType(9)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestShapeTypeSupported(t *testing.T) {
	for _, typ := range []ShapeType{TypeNull, TypePoint, TypePolyLine, TypePolygon, TypeMultiPoint, TypePolyLineM} {
		if !typ.Supported() {
			t.Errorf("expected %s to be supported", typ)
		}
	}

	for _, code := range []int32{2, 4, 6, 7, 9, 11, 13, 31, -1} {
		if ShapeType(code).Supported() {
			t.Errorf("expected code %d to be rejected", code)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts == nil {
		t.Fatal("expected non-nil options")
	}
	if opts.Logger == nil {
		t.Error("expected a default logger")
	}
	if opts.Strict {
		t.Error("expected Strict to be false by default")
	}
}

func TestNilOptions(t *testing.T) {
	var opts *Options

	if opts.logger() == nil {
		t.Error("expected nil options to fall back to the default logger")
	}
	if opts.strict() || opts.measured() {
		t.Error("expected nil options to be lenient and unmeasured")
	}
}

func TestRecordError(t *testing.T) {
	err := &RecordError{Record: 3, Offset: 236, Err: ErrTopology}

	if !errors.Is(err, ErrTopology) {
		t.Error("expected RecordError to unwrap to its cause")
	}

	expected := "shapefile: record 3 at byte 236: shapefile: invalid ring"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
