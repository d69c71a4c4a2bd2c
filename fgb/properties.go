package fgb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// column is one property column and the type every value is encoded as.
type column struct {
	name string
	typ  flattypes.ColumnType
}

// schema is the ordered property columns of a layer.
type schema struct {
	columns []column
	index   map[string]int
}

// inferSchema collects every property name across features and picks the
// most general type seen for each. Columns are sorted by name.
func inferSchema(features []*geojson.Feature) *schema {
	types := make(map[string]flattypes.ColumnType)
	for _, f := range features {
		if f == nil {
			continue
		}
		for name, value := range f.Properties {
			if value == nil {
				continue
			}
			t := inferColumnType(value)
			if existing, ok := types[name]; ok {
				t = promoteColumnType(existing, t)
			}
			types[name] = t
		}
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &schema{index: make(map[string]int, len(names))}
	for i, name := range names {
		s.columns = append(s.columns, column{name: name, typ: types[name]})
		s.index[name] = i
	}
	return s
}

// writerColumns builds the header columns.
func (s *schema) writerColumns(builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(s.columns))
	for _, c := range s.columns {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name)
		col.SetType(c.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// inferColumnType determines the FlatGeobuf column type for a Go value.
func inferColumnType(value interface{}) flattypes.ColumnType {
	switch v := value.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return flattypes.ColumnTypeInt
		}
		return flattypes.ColumnTypeLong
	case int8, int16, int32, uint8, uint16:
		return flattypes.ColumnTypeInt
	case int64, uint32:
		return flattypes.ColumnTypeLong
	case float32, float64:
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	default:
		return flattypes.ColumnTypeJson
	}
}

var numericRank = map[flattypes.ColumnType]int{
	flattypes.ColumnTypeBool:   0,
	flattypes.ColumnTypeInt:    1,
	flattypes.ColumnTypeLong:   2,
	flattypes.ColumnTypeDouble: 3,
}

// promoteColumnType returns the more general type when there's a conflict.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	if a == flattypes.ColumnTypeJson || b == flattypes.ColumnTypeJson {
		return flattypes.ColumnTypeJson
	}
	if a == flattypes.ColumnTypeString || b == flattypes.ColumnTypeString {
		return flattypes.ColumnTypeString
	}

	rankA, okA := numericRank[a]
	rankB, okB := numericRank[b]
	if okA && okB {
		if rankA > rankB {
			return a
		}
		return b
	}
	return flattypes.ColumnTypeJson
}

// encode writes props as FlatGeobuf property bytes: for each non-null value,
// the uint16 column index followed by the value in its column's type.
// Columns are written in schema order.
func (s *schema) encode(props geojson.Properties) []byte {
	if len(props) == 0 || len(s.columns) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, c := range s.columns {
		value, ok := props[c.name]
		if !ok || value == nil {
			continue
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(i))
		writeValue(&buf, value, c.typ)
	}
	return buf.Bytes()
}

// writeValue encodes value as colType. Fixed-size values are little-endian;
// strings and JSON carry a uint32 byte length prefix.
func writeValue(buf *bytes.Buffer, value interface{}, colType flattypes.ColumnType) {
	switch colType {
	case flattypes.ColumnTypeBool:
		b, _ := value.(bool)
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeInt:
		v, _ := toInt64(value)
		_ = binary.Write(buf, binary.LittleEndian, int32(v))

	case flattypes.ColumnTypeLong:
		v, _ := toInt64(value)
		_ = binary.Write(buf, binary.LittleEndian, v)

	case flattypes.ColumnTypeDouble:
		v, _ := toFloat64(value)
		_ = binary.Write(buf, binary.LittleEndian, v)

	case flattypes.ColumnTypeString:
		writeSized(buf, []byte(toString(value)))

	default:
		data, err := json.Marshal(value)
		if err != nil {
			data = []byte("null")
		}
		writeSized(buf, data)
	}
}

func writeSized(buf *bytes.Buffer, data []byte) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
}

// toInt64 accepts booleans, signed integers, unsigned integers narrower
// than 64 bits and integral json.Number values.
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case json.Number:
		i, err := val.Int64()
		return i, err == nil
	case nil:
		return 0, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	if v != nil {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return rv.Float(), true
		}
	}
	i, ok := toInt64(v)
	return float64(i), ok
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// decodeProperties reads property bytes written by encode, typing each value
// by its header column. Integers decode as int64 and floats as float64.
func decodeProperties(data []byte, h *flattypes.Header) (geojson.Properties, error) {
	columns := make([]flattypes.Column, h.ColumnsLength())
	for i := range columns {
		h.Columns(&columns[i], i)
	}

	props := make(geojson.Properties)
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		var idx uint16
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return nil, fmt.Errorf("%w: property column index: %w", ErrInvalidData, err)
		}
		if int(idx) >= len(columns) {
			return nil, fmt.Errorf("%w: property column %d of %d", ErrInvalidData, idx, len(columns))
		}

		col := &columns[idx]
		value, err := readValue(r, col.Type())
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: %w", ErrInvalidData, col.Name(), err)
		}
		props[string(col.Name())] = value
	}
	return props, nil
}

func readValue(r *bytes.Reader, colType flattypes.ColumnType) (interface{}, error) {
	switch colType {
	case flattypes.ColumnTypeBool:
		b, err := r.ReadByte()
		return b != 0, err
	case flattypes.ColumnTypeByte:
		var v int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return int64(v), err
	case flattypes.ColumnTypeUByte:
		b, err := r.ReadByte()
		return int64(b), err
	case flattypes.ColumnTypeShort:
		var v int16
		err := binary.Read(r, binary.LittleEndian, &v)
		return int64(v), err
	case flattypes.ColumnTypeUShort:
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return int64(v), err
	case flattypes.ColumnTypeInt:
		var v int32
		err := binary.Read(r, binary.LittleEndian, &v)
		return int64(v), err
	case flattypes.ColumnTypeUInt:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return int64(v), err
	case flattypes.ColumnTypeLong:
		var v int64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case flattypes.ColumnTypeULong:
		var v uint64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case flattypes.ColumnTypeFloat:
		var v float32
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case flattypes.ColumnTypeDouble:
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	}

	data, err := readSized(r)
	if err != nil {
		return nil, err
	}
	switch colType {
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		return string(data), nil
	case flattypes.ColumnTypeJson:
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return data, nil
}

func readSized(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if int64(n) > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	data := make([]byte, n)
	_, err := io.ReadFull(r, data)
	return data, err
}
