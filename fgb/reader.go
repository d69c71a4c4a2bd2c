package fgb

import (
	"fmt"
	"math"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reader reads features back from an indexed FlatGeobuf layer.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewReader opens a FlatGeobuf file. The file is memory-mapped.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return newReader(fgb)
}

// NewReaderFromData creates a reader over FlatGeobuf bytes.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return newReader(fgb)
}

func newReader(fgb *flatgeobuf.FlatGeoBuf) (*Reader, error) {
	if fgb.Header() == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidData)
	}
	return &Reader{fgb: fgb}, nil
}

// ReadHeader parses the header of FlatGeobuf data.
func ReadHeader(data []byte) (*Header, error) {
	r, err := NewReaderFromData(data)
	if err != nil {
		return nil, err
	}
	return r.Header(), nil
}

// Header returns the layer metadata.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, ColumnInfo{
				Name:     string(col.Name()),
				Type:     flattypes.EnumNamesColumnType[col.Type()],
				Nullable: col.Nullable(),
			})
		}
	}

	return header
}

// ReadAll returns every feature of the layer, in index order.
// Layers written without the packed index return ErrNoIndex.
func (r *Reader) ReadAll() (*geojson.FeatureCollection, error) {
	return r.Search(orb.Bound{
		Min: orb.Point{-math.MaxFloat64, -math.MaxFloat64},
		Max: orb.Point{math.MaxFloat64, math.MaxFloat64},
	})
}

// Search returns the features whose envelopes intersect bounds, using the
// packed R-tree. Layers written without it return ErrNoIndex.
func (r *Reader) Search(bounds orb.Bound) (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	features, err := r.fgb.Search(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		feature, err := decodeFeature(f, h)
		if err != nil {
			return nil, err
		}
		if feature != nil {
			fc.Append(feature)
		}
	}
	return fc, nil
}

// Close releases the reader. The mapping is freed once the reader is
// garbage collected.
func (r *Reader) Close() error {
	r.fgb = nil
	return nil
}

func decodeFeature(f *flattypes.Feature, h *flattypes.Header) (*geojson.Feature, error) {
	if f == nil {
		return nil, nil
	}

	var g flattypes.Geometry
	if f.Geometry(&g) == nil {
		return nil, nil
	}
	geom := decodeGeometry(&g, h.GeometryType())
	if geom == nil {
		return nil, fmt.Errorf("%w: geometry type %s", ErrUnsupportedType,
			flattypes.EnumNamesGeometryType[g.Type()])
	}

	feature := geojson.NewFeature(geom)
	if n := f.PropertiesLength(); n > 0 {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(f.Properties(i))
		}
		props, err := decodeProperties(data, h)
		if err != nil {
			return nil, err
		}
		feature.Properties = props
	}
	return feature, nil
}
