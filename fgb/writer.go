package fgb

import (
	"context"
	"fmt"
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	shapefile "github.com/tingold/orb-shapefile"
)

// Write writes geometries to FlatGeobuf format without properties.
// Nil geometries are skipped.
func Write(w io.Writer, geometries []orb.Geometry, opts *Options) error {
	fc := geojson.NewFeatureCollection()
	for _, g := range geometries {
		if g != nil {
			fc.Append(geojson.NewFeature(g))
		}
	}
	return WriteFeatures(w, fc, opts)
}

// WriteShapefile converts every non-null record of r to a FlatGeobuf
// feature. Each feature carries the source record number in "record", the
// shape type name in "shape_type" and, for measured lines, the per-part
// measures in "measures".
func WriteShapefile(ctx context.Context, w io.Writer, r *shapefile.Reader, opts *Options) error {
	records, err := r.ReadAll(ctx)
	if err != nil {
		return err
	}

	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		if f := rec.Feature(); f != nil {
			fc.Append(f)
		}
	}
	return WriteFeatures(w, fc, opts)
}

// WriteFeatures writes a FeatureCollection to FlatGeobuf format. Features
// without a geometry are skipped; the property schema is inferred from all
// features.
func WriteFeatures(w io.Writer, fc *geojson.FeatureCollection, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	var features []*geojson.Feature
	var geometries []orb.Geometry
	if fc != nil {
		for _, f := range fc.Features {
			if f == nil || f.Geometry == nil {
				continue
			}
			if _, ok := geometryType(f.Geometry); !ok {
				return fmt.Errorf("%w: %T", ErrUnsupportedType, f.Geometry)
			}
			features = append(features, f)
			geometries = append(geometries, f.Geometry)
		}
	}
	if len(features) == 0 {
		return ErrNoFeatures
	}

	builder := flatbuffers.NewBuilder(4096)
	layer := layerType(geometries)
	s := inferSchema(features)

	header := writer.NewHeader(builder)
	header.SetGeometryType(layer)
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if len(s.columns) > 0 {
		header.SetColumns(s.writerColumns(builder))
	}
	if c := opts.CRS; c != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if c.Code > 0 {
			crs.SetCode(int32(c.Code))
		}
		if c.Name != "" {
			crs.SetName(c.Name)
		}
		// WKT goes in the description when there is none.
		switch {
		case c.Description != "":
			crs.SetDescription(c.Description)
		case c.WKT != "":
			crs.SetDescription(c.WKT)
		}
		header.SetCrs(crs)
	}

	gen := &featureGenerator{features: features, schema: s, layer: layer}
	_, err := writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w)
	return err
}

// featureGenerator feeds features to the FlatGeobuf writer one at a time.
type featureGenerator struct {
	features []*geojson.Feature
	schema   *schema
	layer    flattypes.GeometryType
	index    int
}

func (g *featureGenerator) Generate() *writer.Feature {
	if g.index >= len(g.features) {
		return nil
	}

	f := g.features[g.index]
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	feature := writer.NewFeature(builder)
	feature.SetGeometry(encodeGeometry(promote(f.Geometry, g.layer), builder))

	if props := g.schema.encode(f.Properties); len(props) > 0 {
		feature.SetProperties(props)
	}
	return feature
}
