package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/dataforge/core"
)

// formatCodec converts between a table and the bytes of one file format.
type formatCodec interface {
	encode(t *core.Table) ([]byte, error)
	decode(data []byte) (*core.Table, error)
}

var codecs = map[string]formatCodec{
	"json":    jsonCodec{},
	"jsonl":   jsonlCodec{},
	"csv":     csvCodec{},
	"parquet": parquetCodec{},
	"msgpack": msgpackCodec{},
}

// Formats returns the supported format names in sorted order.
func Formats() []string {
	out := make([]string, 0, len(codecs))
	for k := range codecs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// FormatOf returns the lowercased extension of path without the dot.
func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func codecFor(format string) (formatCodec, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, format, strings.Join(Formats(), ", "))
	}
	return c, nil
}

// Encode serializes a table in the named format.
func Encode(format string, t *core.Table) ([]byte, error) {
	c, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	return c.encode(t)
}

// Decode parses data in the named format.
func Decode(format string, data []byte) (*core.Table, error) {
	c, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	t, err := c.decode(data)
	if err != nil {
		if errors.Is(err, ErrMalformedContent) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedContent, format, err)
	}
	return t, nil
}

// columnSet accumulates column names in first-appearance order.
type columnSet struct {
	names []string
	seen  map[string]struct{}
}

func (c *columnSet) add(name string) {
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}

type jsonCodec struct{}

func (jsonCodec) encode(t *core.Table) ([]byte, error) {
	var buf bytes.Buffer
	cols := t.Columns()
	buf.WriteByte('[')
	for i, row := range t.Rows() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		if err := writeObject(&buf, cols, row); err != nil {
			return nil, err
		}
	}
	if t.Len() > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

func (jsonCodec) decode(data []byte) (*core.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return core.NewTable(nil, nil), nil
		}
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("%w: json: expected an array of objects", ErrMalformedContent)
	}
	var cols columnSet
	var rows []core.Row
	for dec.More() {
		row, err := readObject(dec, &cols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return core.NewTable(cols.names, rows), nil
}

type jsonlCodec struct{}

func (jsonlCodec) encode(t *core.Table) ([]byte, error) {
	var buf bytes.Buffer
	cols := t.Columns()
	for _, row := range t.Rows() {
		if err := writeObject(&buf, cols, row); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (jsonlCodec) decode(data []byte) (*core.Table, error) {
	var cols columnSet
	var rows []core.Row
	r := bufio.NewReader(bytes.NewReader(data))
	lineNo := 0
	for {
		line, err := r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			lineNo++
			row, decErr := readObject(json.NewDecoder(bytes.NewReader(line)), &cols)
			if decErr != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, decErr)
			}
			rows = append(rows, row)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return core.NewTable(cols.names, rows), nil
}

// writeObject writes row as a JSON object with keys in column order.
func writeObject(buf *bytes.Buffer, cols []string, row core.Row) error {
	buf.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalJSON(c)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := writeValue(buf, row[c]); err != nil {
			return fmt.Errorf("column %q: %w", c, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeValue writes v as JSON. Floats always carry a fraction or exponent so
// they read back as floats and not as integers.
func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case float64:
		b, err := marshalJSON(x)
		if err != nil {
			return err
		}
		buf.Write(b)
		if !bytes.ContainsAny(b, ".eE") {
			buf.WriteString(".0")
		}
	case float32:
		return writeValue(buf, float64(x))
	case map[string]any:
		keys := slices.Sorted(maps.Keys(x))
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalJSON(k)
			if err != nil {
				return err
			}
			buf.Write(b)
			buf.WriteByte(':')
			if err := writeValue(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := marshalJSON(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// marshalJSON encodes v without HTML escaping. Non-ASCII text is kept as UTF-8.
func marshalJSON(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

// readObject reads one JSON object preserving key order in cols.
func readObject(dec *json.Decoder, cols *columnSet) (core.Row, error) {
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedContent)
	}
	row := core.Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object key", ErrMalformedContent)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		row[key] = fromJSON(v)
		cols.add(key)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return row, nil
}

// fromJSON replaces the json.Number values of a decoded value: integers
// that fit in int64 become int64, every other number float64.
func fromJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				return i
			}
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSON(e)
		}
	case []any:
		for i, e := range x {
			x[i] = fromJSON(e)
		}
	}
	return v
}

type csvCodec struct{}

func (csvCodec) encode(t *core.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	cols := t.Columns()
	if err := w.Write(cols); err != nil {
		return nil, err
	}
	record := make([]string, len(cols))
	for _, row := range t.Rows() {
		for i, c := range cols {
			cell, err := csvCell(row[c])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c, err)
			}
			record[i] = cell
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func csvCell(v any) (string, error) {
	switch v.(type) {
	case map[string]any, []any:
		b, err := marshalJSON(v)
		return string(b), err
	default:
		return core.Text(v), nil
	}
}

func (csvCodec) decode(data []byte) (*core.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return core.NewTable(nil, nil), nil
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := make([]core.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(core.Row, len(header))
		for i, c := range header {
			row[c] = rec[i]
		}
		rows = append(rows, row)
	}
	return core.NewTable(header, rows), nil
}
