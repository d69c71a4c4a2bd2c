// Package shapefile provides ESRI Shapefile support for the orb geometry library.
// It reads and writes the .shp geometry stream and the .shx offset index, and
// rebuilds polygon shell/hole nesting from the raw rings stored in the file.
package shapefile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Common errors returned by this package.
var (
	ErrNilGeometry     = errors.New("shapefile: no geometries")
	ErrUnsupportedType = errors.New("shapefile: unsupported shape type")
	ErrInvalidData     = errors.New("shapefile: invalid data")
	ErrNoIndex         = errors.New("shapefile: reader has no index")
	ErrTruncated       = errors.New("shapefile: truncated data")
	ErrMixedGeometry   = errors.New("shapefile: mixed geometry types")
	ErrTopology        = errors.New("shapefile: invalid ring")
	ErrOrphanHole      = errors.New("shapefile: hole has no enclosing shell")
)

const (
	fileCode    = 9994
	fileVersion = 1000

	// headerWords is the size of the main and index file headers in 16-bit words.
	headerWords = 50
	headerBytes = headerWords * 2

	recordHeaderWords = 4
	indexRecordWords  = 4
)

// ShapeType is the on-disk discriminant of a shape record.
type ShapeType int32

// Shape types with a registered handler.
const (
	TypeNull       ShapeType = 0
	TypePoint      ShapeType = 1
	TypePolyLine   ShapeType = 3
	TypePolygon    ShapeType = 5
	TypeMultiPoint ShapeType = 8
	TypePolyLineM  ShapeType = 23
)

// String returns the ESRI name of the shape type.
func (t ShapeType) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypePoint:
		return "Point"
	case TypePolyLine:
		return "PolyLine"
	case TypePolygon:
		return "Polygon"
	case TypeMultiPoint:
		return "MultiPoint"
	case TypePolyLineM:
		return "PolyLineM"
	default:
		return fmt.Sprintf("ShapeType(%d)", int32(t))
	}
}

// Supported reports whether the package can read and write records of this type.
func (t ShapeType) Supported() bool {
	switch t {
	case TypeNull, TypePoint, TypePolyLine, TypePolygon, TypeMultiPoint, TypePolyLineM:
		return true
	}
	return false
}

// Options configures reading and writing.
type Options struct {
	// Logger receives format warnings. Nil uses a stderr logger at warn level.
	Logger *slog.Logger

	// Strict turns recoverable inconsistencies (record numbering, content
	// length surplus, shape tag mismatch, orphan holes) into errors.
	Strict bool

	// Measured writes line geometries as PolyLineM records.
	Measured bool
}

// DefaultOptions returns default options for reading and writing shapefiles.
func DefaultOptions() *Options {
	return &Options{
		Logger: defaultLogger(),
	}
}

var (
	stderrLoggerOnce sync.Once
	stderrLogger     *slog.Logger
)

func defaultLogger() *slog.Logger {
	stderrLoggerOnce.Do(func() {
		handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Prefix: "shapefile",
			Level:  charmlog.WarnLevel,
		})
		stderrLogger = slog.New(handler)
	})
	return stderrLogger
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return defaultLogger()
	}
	return o.Logger
}

func (o *Options) strict() bool {
	return o != nil && o.Strict
}

func (o *Options) measured() bool {
	return o != nil && o.Measured
}

// RecordError reports a failure while decoding one record.
type RecordError struct {
	Record int   // 1-based record number
	Offset int64 // byte offset of the record header in the .shp stream
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("shapefile: record %d at byte %d: %v", e.Record, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
