package core

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for rows and artifacts.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	return IDFromBytes([]byte(text))
}

// IDFromBytes is IDFromContent for raw bytes.
func IDFromBytes(data []byte) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(data)
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RowID hashes the text of the given columns of a row. With no columns
// every key of the row takes part, in sorted order.
func RowID(row Row, columns ...string) ID {
	if len(columns) == 0 {
		columns = make([]string, 0, len(row))
		for k := range row {
			columns = append(columns, k)
		}
		slices.Sort(columns)
	}
	h, _ := blake2b.New(8, nil)
	for _, col := range columns {
		h.Write([]byte(col))
		h.Write([]byte{0})
		h.Write([]byte(Text(row[col])))
		h.Write([]byte{0})
	}
	return ID(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// Row is a single record: column name to cell value.
type Row map[string]any

// Table is an ordered collection of rows sharing one column set.
// Every row carries every column; absent cells hold nil.
type Table struct {
	columns []string
	rows    []Row
}

// NewTable builds a table with the given column order. Columns found in rows
// but not listed are appended in first-appearance order.
func NewTable(columns []string, rows []Row) *Table {
	t := &Table{columns: slices.Clone(columns)}
	t.Append(rows...)
	return t
}

// FromRecords builds a table from plain row mappings.
func FromRecords(records []map[string]any) *Table {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row(r)
	}
	return NewTable(nil, rows)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// Rows returns the rows backing the table. Callers must not add keys.
func (t *Table) Rows() []Row {
	return t.rows
}

// Row returns row i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Records returns the rows as plain maps.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = map[string]any(r)
	}
	return out
}

// Column returns the values of a column in row order.
func (t *Table) Column(name string) ([]any, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out, nil
}

// Strings returns the text form of a column in row order.
func (t *Table) Strings(name string) ([]string, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Text(v)
	}
	return out, nil
}

// SetColumn adds or replaces a column. values must have one entry per row.
func (t *Table) SetColumn(name string, values []any) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("%w: column %q has %d values for %d rows", ErrLengthMismatch, name, len(values), len(t.rows))
	}
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
	for i, r := range t.rows {
		r[name] = values[i]
	}
	return nil
}

// Filter returns a new table holding the rows for which keep returns true.
// Rows are shared with the receiver.
func (t *Table) Filter(keep func(i int, row Row) bool) *Table {
	out := &Table{columns: slices.Clone(t.columns)}
	for i, r := range t.rows {
		if keep(i, r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// Append adds rows, widening the column set as needed. Columns new to the
// table are added in sorted order per row.
func (t *Table) Append(rows ...Row) {
	for _, r := range rows {
		var added []string
		for k := range r {
			if !slices.Contains(t.columns, k) {
				added = append(added, k)
			}
		}
		slices.Sort(added)
		t.columns = append(t.columns, added...)
	}
	for _, r := range rows {
		if r == nil {
			r = Row{}
		}
		t.rows = append(t.rows, r)
	}
	t.fill()
}

// Clone returns a deep copy of the table structure. Cell values are shared.
func (t *Table) Clone() *Table {
	out := &Table{columns: slices.Clone(t.columns), rows: make([]Row, len(t.rows))}
	for i, r := range t.rows {
		c := make(Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out.rows[i] = c
	}
	return out
}

func (t *Table) fill() {
	for _, r := range t.rows {
		for _, c := range t.columns {
			if _, ok := r[c]; !ok {
				r[c] = nil
			}
		}
	}
}

// Text renders a cell as text. nil renders as the empty string.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// IsBlank reports whether a cell is nil or an empty string.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
