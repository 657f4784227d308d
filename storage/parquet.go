package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/poiesic/dataforge/core"
)

// columnOrderKey stores the table column order in the file metadata, since
// parquet groups order their fields by name.
const columnOrderKey = "dataforge.columns"

type parquetCodec struct{}

type parquetKind int

const (
	parquetText parquetKind = iota
	parquetDouble
	parquetBool
	parquetInt64
)

// inferKind picks the narrowest physical type holding every non-nil cell.
// Integer columns stay int64; integers mixed with floats widen to double.
func inferKind(values []any) parquetKind {
	kind := parquetKind(-1)
	for _, v := range values {
		var k parquetKind
		switch v.(type) {
		case nil:
			continue
		case float64, float32:
			k = parquetDouble
		case int, int64, int32:
			k = parquetInt64
		case bool:
			k = parquetBool
		default:
			return parquetText
		}
		switch {
		case kind < 0 || kind == k:
			kind = k
		case (kind == parquetInt64 && k == parquetDouble) || (kind == parquetDouble && k == parquetInt64):
			kind = parquetDouble
		default:
			return parquetText
		}
	}
	if kind < 0 {
		return parquetText
	}
	return kind
}

func (parquetCodec) encode(t *core.Table) ([]byte, error) {
	cols := t.Columns()
	group := parquet.Group{}
	kinds := make(map[string]parquetKind, len(cols))
	for _, c := range cols {
		values, _ := t.Column(c)
		kinds[c] = inferKind(values)
		switch kinds[c] {
		case parquetDouble:
			group[c] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case parquetInt64:
			group[c] = parquet.Optional(parquet.Int(64))
		case parquetBool:
			group[c] = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		default:
			group[c] = parquet.Optional(parquet.String())
		}
	}
	schema := parquet.NewSchema("row", group)

	order, err := json.Marshal(cols)
	if err != nil {
		return nil, err
	}

	// leaf column index of each top-level field
	index := make(map[string]int, len(cols))
	for i, path := range schema.Columns() {
		index[path[0]] = i
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, schema, parquet.KeyValueMetadata(columnOrderKey, string(order)))
	rows := make([]parquet.Row, 0, t.Len())
	for _, r := range t.Rows() {
		row := make(parquet.Row, len(cols))
		for _, c := range cols {
			ci := index[c]
			v, err := parquetValue(kinds[c], r[c])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c, err)
			}
			if v.IsNull() {
				row[ci] = v.Level(0, 0, ci)
			} else {
				row[ci] = v.Level(0, 1, ci)
			}
		}
		rows = append(rows, row)
	}
	if _, err := w.WriteRows(rows); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parquetValue(kind parquetKind, v any) (parquet.Value, error) {
	if v == nil {
		return parquet.NullValue(), nil
	}
	switch kind {
	case parquetDouble:
		switch x := v.(type) {
		case float64:
			return parquet.DoubleValue(x), nil
		case float32:
			return parquet.DoubleValue(float64(x)), nil
		case int:
			return parquet.DoubleValue(float64(x)), nil
		case int64:
			return parquet.DoubleValue(float64(x)), nil
		case int32:
			return parquet.DoubleValue(float64(x)), nil
		}
	case parquetInt64:
		switch x := v.(type) {
		case int:
			return parquet.Int64Value(int64(x)), nil
		case int64:
			return parquet.Int64Value(x), nil
		case int32:
			return parquet.Int64Value(int64(x)), nil
		}
	case parquetBool:
		if b, ok := v.(bool); ok {
			return parquet.BooleanValue(b), nil
		}
	}
	switch x := v.(type) {
	case string:
		return parquet.ByteArrayValue([]byte(x)), nil
	case map[string]any, []any:
		b, err := marshalJSON(x)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.ByteArrayValue(b), nil
	default:
		return parquet.ByteArrayValue([]byte(core.Text(x))), nil
	}
}

func (parquetCodec) decode(data []byte) (*core.Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	paths := f.Schema().Columns()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
	}
	cols := names
	if order, ok := f.Lookup(columnOrderKey); ok {
		var stored []string
		if err := json.Unmarshal([]byte(order), &stored); err == nil {
			cols = stored
		}
	}

	reader := parquet.NewReader(f)
	defer reader.Close()

	var rows []core.Row
	buf := make([]parquet.Row, 64)
	for {
		n, err := reader.ReadRows(buf)
		for _, pr := range buf[:n] {
			rows = append(rows, parquetRow(pr, names))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return core.NewTable(cols, rows), nil
}

// parquetRow converts the leaf values of one row. Repeated leaves become slices.
func parquetRow(pr parquet.Row, names []string) core.Row {
	row := make(core.Row, len(names))
	repeated := make(map[string]bool)
	for _, v := range pr {
		name := names[v.Column()]
		if v.RepetitionLevel() > 0 {
			repeated[name] = true
		}
		if v.IsNull() {
			if _, ok := row[name]; !ok {
				row[name] = nil
			}
			continue
		}
		cell := parquetCell(v)
		switch existing := row[name].(type) {
		case nil:
			row[name] = cell
		case []any:
			if repeated[name] {
				row[name] = append(existing, cell)
			}
		default:
			row[name] = []any{existing, cell}
		}
	}
	return row
}

func parquetCell(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
