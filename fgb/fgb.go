// Package fgb exports shapefile contents to the FlatGeobuf format.
//
// A shapefile layer becomes one FlatGeobuf layer. Each non-null record is a
// feature whose properties hold the source record number ("record"), the
// shape type name ("shape_type") and, for PolyLineM records, the measures
// of every part ("measures", a JSON column). Arbitrary GeoJSON features can
// be written too; their property schema is inferred from the values.
//
// Reader decodes features back from layers written with the packed index.
package fgb

import (
	"errors"
)

var (
	ErrNoFeatures      = errors.New("fgb: no features")
	ErrUnsupportedType = errors.New("fgb: unsupported geometry type")
	ErrInvalidData     = errors.New("fgb: invalid data")
	ErrNoIndex         = errors.New("fgb: layer has no spatial index")
)

// CRS is the coordinate reference system written to the layer header.
// Shapefiles keep theirs in a .prj sidecar, which this module does not
// parse, so callers set it explicitly.
type CRS struct {
	Code        int // EPSG code; zero leaves it unset
	Name        string
	Description string
	WKT         string // used as the description when Description is empty
}

// WGS84 returns EPSG:4326.
func WGS84() *CRS {
	return &CRS{Code: 4326, Name: "WGS 84"}
}

// Options configures the exported layer.
type Options struct {
	Name         string
	Description  string
	IncludeIndex bool // write the packed Hilbert R-tree
	CRS          *CRS
}

// DefaultOptions returns options that write an indexed layer with no name
// or CRS.
func DefaultOptions() *Options {
	return &Options{IncludeIndex: true}
}

// ColumnInfo is one property column as read back from a header.
type ColumnInfo struct {
	Name     string
	Type     string // flattypes column type name, e.g. "Int" or "Json"
	Nullable bool
}

// Header is the layer metadata of an encoded FlatGeobuf file.
type Header struct {
	Name          string
	Description   string
	GeometryType  string // flattypes geometry type name, e.g. "MultiPolygon"
	FeaturesCount uint64
	CRS           *CRS
	HasIndex      bool
	Columns       []ColumnInfo
}
