package shapefile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestNewDecoder_UnsupportedType(t *testing.T) {
	payload := pointPayload(TypePoint, 1, 2, 0)
	data := rawFile(t, ShapeType(9), rawRecord{number: 1, payload: payload})

	r := bytes.NewReader(data)
	_, err := NewDecoder(r, quietOptions())
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if consumed := len(data) - r.Len(); consumed != headerBytes {
		t.Errorf("expected only the header to be read, consumed %d bytes", consumed)
	}
}

func TestDecoder_StopsAtEndOfStream(t *testing.T) {
	geometries := []orb.Geometry{
		orb.Point{1, 1},
		orb.Point{2, 2},
		nil,
		orb.Point{4, 4},
		orb.Point{5, 5},
	}

	var buf bytes.Buffer
	if err := Write(&buf, geometries, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	d, err := NewDecoder(&buf, quietOptions())
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	for i := range geometries {
		rec, err := d.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i+1, err)
		}
		if rec.Number != i+1 {
			t.Errorf("expected record number %d, got %d", i+1, rec.Number)
		}
		if geometries[i] == nil {
			if rec.Geometry != nil || rec.Type != TypeNull {
				t.Errorf("record %d: expected null shape, got %v", i+1, rec.Geometry)
			}
			continue
		}
		if !orb.Equal(rec.Geometry, geometries[i]) {
			t.Errorf("record %d: expected %v, got %v", i+1, geometries[i], rec.Geometry)
		}
	}

	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after the last record, got %v", err)
	}
}

func TestDecoder_SkipsBadRecord(t *testing.T) {
	geometries := []orb.Geometry{
		orb.Polygon{square(0, 0, 1, 1, true)},
		orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}},
		orb.Polygon{square(5, 5, 6, 6, true)},
	}

	var buf bytes.Buffer
	if err := Write(&buf, geometries, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	d, err := NewDecoder(&buf, quietOptions())
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	if _, err := d.Next(); err != nil {
		t.Fatalf("record 1: %v", err)
	}

	_, err = d.Next()
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if recErr.Record != 2 {
		t.Errorf("expected record 2, got %d", recErr.Record)
	}
	// Header, then record 1: 8-byte record header and a 5-point ring.
	if expected := int64(headerBytes + 8 + 2*(22+2+8*5)); recErr.Offset != expected {
		t.Errorf("expected offset %d, got %d", expected, recErr.Offset)
	}
	if !errors.Is(err, ErrTopology) {
		t.Errorf("expected ErrTopology, got %v", err)
	}

	rec, err := d.Next()
	if err != nil {
		t.Fatalf("record 3: %v", err)
	}
	if rec.Number != 3 || !orb.Equal(rec.Geometry, geometries[2]) {
		t.Errorf("unexpected record 3: %+v", rec)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_TruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []orb.Geometry{orb.Point{1, 2}, orb.Point{3, 4}}, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data := buf.Bytes()

	tests := []struct {
		name string
		cut  int
	}{
		{"inside record header", 24},
		{"inside content", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDecoder(bytes.NewReader(data[:len(data)-tt.cut]), quietOptions())
			if err != nil {
				t.Fatalf("NewDecoder failed: %v", err)
			}
			if _, err := d.Next(); err != nil {
				t.Fatalf("record 1: %v", err)
			}
			_, err = d.Next()
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestDecoder_Inconsistencies(t *testing.T) {
	tests := []struct {
		name    string
		records []rawRecord
		warning string
	}{
		{
			name:    "content longer than geometry",
			records: []rawRecord{{number: 1, payload: pointPayload(TypePoint, 1, 2, 4)}},
			warning: "record content longer than its geometry",
		},
		{
			name:    "record number out of sequence",
			records: []rawRecord{{number: 5, payload: pointPayload(TypePoint, 1, 2, 0)}},
			warning: "record number out of sequence",
		},
		{
			name:    "shape tag differs from file",
			records: []rawRecord{{number: 1, payload: pointPayload(ShapeType(11), 1, 2, 0)}},
			warning: "record shape type differs from file shape type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rawFile(t, TypePoint, tt.records...)

			var logs bytes.Buffer
			d, err := NewDecoder(bytes.NewReader(data), recordingOptions(&logs))
			if err != nil {
				t.Fatalf("NewDecoder failed: %v", err)
			}
			rec, err := d.Next()
			if err != nil {
				t.Fatalf("expected lenient decode, got %v", err)
			}
			if !orb.Equal(rec.Geometry, orb.Point{1, 2}) {
				t.Errorf("expected POINT(1 2), got %v", rec.Geometry)
			}
			if !strings.Contains(logs.String(), tt.warning) {
				t.Errorf("expected warning %q, got %q", tt.warning, logs.String())
			}

			opts := quietOptions()
			opts.Strict = true
			d, err = NewDecoder(bytes.NewReader(data), opts)
			if err != nil {
				t.Fatalf("NewDecoder failed: %v", err)
			}
			_, err = d.Next()
			if !errors.Is(err, ErrInvalidData) {
				t.Errorf("expected ErrInvalidData in strict mode, got %v", err)
			}
			if _, err := d.Next(); err != io.EOF {
				t.Errorf("expected the decoder to move past the record, got %v", err)
			}
		})
	}
}

func TestDecoder_NullRecordInTypedFile(t *testing.T) {
	data := rawFile(t, TypePolygon,
		rawRecord{number: 1, payload: pointPayload(TypeNull, 0, 0, 0)},
	)

	d, err := NewDecoder(bytes.NewReader(data), quietOptions())
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	rec, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Type != TypeNull || rec.Geometry != nil {
		t.Errorf("expected a null record, got %+v", rec)
	}
	if !rec.Bound().IsEmpty() {
		t.Errorf("expected an empty bound, got %v", rec.Bound())
	}
}

func TestDecoder_ContextCancelled(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []orb.Geometry{orb.Point{1, 1}}, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	d, err := NewDecoder(&buf, quietOptions())
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.ReadAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReader_FromFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "roads.shp")

	geometries := []orb.Geometry{
		orb.LineString{{0, 0}, {1, 1}},
		orb.LineString{{10, 10}, {11, 12}, {12, 10}},
		orb.MultiLineString{{{-5, -5}, {-4, -4}}, {{-3, -3}, {-2, -1}}},
	}
	if err := WriteFile(path, geometries, quietOptions()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, err := NewReader(path, quietOptions())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	if r.Header().ShapeType != TypePolyLine {
		t.Errorf("expected PolyLine, got %s", r.Header().ShapeType)
	}
	if r.Index() == nil || r.Index().RecordCount() != 3 {
		t.Fatalf("expected an index with 3 entries, got %+v", r.Index())
	}

	// Random access, out of order.
	for _, i := range []int{2, 0, 1} {
		rec, err := r.Record(i)
		if err != nil {
			t.Fatalf("Record(%d) failed: %v", i, err)
		}
		if rec.Number != i+1 {
			t.Errorf("Record(%d): expected number %d, got %d", i, i+1, rec.Number)
		}
		if !orb.Equal(rec.Geometry, geometries[i]) {
			t.Errorf("Record(%d): expected %v, got %v", i, geometries[i], rec.Geometry)
		}
	}

	if _, err := r.Record(3); err == nil {
		t.Error("expected an error for a record past the index")
	}

	geoms, err := r.ReadGeometries(context.Background())
	if err != nil {
		t.Fatalf("ReadGeometries failed: %v", err)
	}
	if len(geoms) != len(geometries) {
		t.Errorf("expected %d geometries, got %d", len(geometries), len(geoms))
	}
}

func TestReader_WithoutIndex(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "points.shp")

	var buf bytes.Buffer
	if err := Write(&buf, []orb.Geometry{orb.Point{1, 1}}, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	r, err := NewReader(path, quietOptions())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Index() != nil {
		t.Error("expected no index")
	}
	if _, err := r.Record(0); !errors.Is(err, ErrNoIndex) {
		t.Errorf("expected ErrNoIndex, got %v", err)
	}

	records, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestReader_UpperCaseExtension(t *testing.T) {
	if got := indexPath("/data/ROADS.SHP"); got != "/data/ROADS.SHX" {
		t.Errorf("expected /data/ROADS.SHX, got %s", got)
	}
	if got := indexPath("/data/roads.shp"); got != "/data/roads.shx" {
		t.Errorf("expected /data/roads.shx, got %s", got)
	}
}

func TestReader_NonExistentFile(t *testing.T) {
	_, err := NewReader("/nonexistent/path/file.shp", nil)
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestReader_Search(t *testing.T) {
	geometries := []orb.Geometry{
		orb.Polygon{square(0, 0, 10, 10, true)},
		nil,
		orb.Polygon{square(20, 20, 30, 30, true)},
		orb.Polygon{square(8, 8, 22, 22, true)},
	}

	var shp, shx bytes.Buffer
	if err := WriteWithIndex(&shp, &shx, geometries, quietOptions()); err != nil {
		t.Fatalf("WriteWithIndex failed: %v", err)
	}
	r, err := NewReaderFromData(shp.Bytes(), shx.Bytes(), quietOptions())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}

	matches, err := r.Search(context.Background(), orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{9, 9}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	var numbers []int
	for _, rec := range matches {
		numbers = append(numbers, rec.Number)
	}
	if len(numbers) != 2 || numbers[0] != 1 || numbers[1] != 4 {
		t.Errorf("expected records [1 4], got %v", numbers)
	}
}

func TestReader_ReadFeatures(t *testing.T) {
	geometries := []orb.Geometry{
		orb.Point{1, 2},
		nil,
		orb.Point{3, 4},
	}

	var shp bytes.Buffer
	if err := Write(&shp, geometries, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r, err := NewReaderFromData(shp.Bytes(), nil, quietOptions())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}

	fc, err := r.ReadFeatures(context.Background())
	if err != nil {
		t.Fatalf("ReadFeatures failed: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	if fc.Features[1].ID != 3 {
		t.Errorf("expected feature ID 3, got %v", fc.Features[1].ID)
	}
	if fc.Features[1].Properties["record"] != 3 {
		t.Errorf("expected record property 3, got %v", fc.Features[1].Properties["record"])
	}
	if fc.Features[1].Properties["shape_type"] != "Point" {
		t.Errorf("expected shape_type Point, got %v", fc.Features[1].Properties["shape_type"])
	}
	if _, ok := fc.Features[1].Properties["measures"]; ok {
		t.Error("expected no measures on a Point record")
	}
	if !orb.Equal(fc.Features[0].Geometry, orb.Point{1, 2}) {
		t.Errorf("unexpected geometry %v", fc.Features[0].Geometry)
	}
}

func TestNewReaderFromData_Errors(t *testing.T) {
	if _, err := NewReaderFromData(nil, nil, quietOptions()); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated for empty data, got %v", err)
	}

	var shp bytes.Buffer
	if err := Write(&shp, []orb.Geometry{orb.Point{1, 1}}, quietOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := NewReaderFromData(shp.Bytes(), []byte{0, 0, 39}, quietOptions()); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated for a short index, got %v", err)
	}
}
