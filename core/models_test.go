package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "non-ascii content", content: "数学问题：2 + 2 = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestRowID(t *testing.T) {
	a := Row{"q": "what is 2+2", "a": "4", "meta": "x"}
	b := Row{"q": "what is 2+2", "a": "4", "meta": "y"}

	assert.Equal(t, RowID(a, "q", "a"), RowID(b, "q", "a"))
	assert.NotEqual(t, RowID(a), RowID(b))
	// column boundaries are part of the hash
	assert.NotEqual(t, RowID(Row{"x": "ab", "y": "c"}, "x", "y"), RowID(Row{"x": "a", "y": "bc"}, "x", "y"))
}

func TestNewTable_FillsMissingCells(t *testing.T) {
	tbl := NewTable([]string{"a"}, []Row{{"a": 1.0}, {"b": "x"}})

	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	require.Equal(t, 2, tbl.Len())
	assert.Nil(t, tbl.Row(0)["b"])
	assert.Nil(t, tbl.Row(1)["a"])
	assert.Contains(t, tbl.Row(1), "a")
}

func TestTable_SetColumn(t *testing.T) {
	tbl := FromRecords([]map[string]any{{"q": "one"}, {"q": "two"}})

	require.NoError(t, tbl.SetColumn("score", []any{1.0, 0.5}))
	assert.True(t, tbl.HasColumn("score"))
	assert.Equal(t, 0.5, tbl.Row(1)["score"])

	err := tbl.SetColumn("bad", []any{1.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.False(t, tbl.HasColumn("bad"))
}

func TestTable_Column(t *testing.T) {
	tbl := FromRecords([]map[string]any{{"q": "one", "n": 3.0}, {"q": "two", "n": nil}})

	values, err := tbl.Column("q")
	require.NoError(t, err)
	assert.Equal(t, []any{"one", "two"}, values)

	text, err := tbl.Strings("n")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", ""}, text)

	_, err = tbl.Column("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTable_FilterKeepsOrder(t *testing.T) {
	tbl := FromRecords([]map[string]any{{"n": 1.0}, {"n": 2.0}, {"n": 3.0}, {"n": 4.0}})

	even := tbl.Filter(func(_ int, r Row) bool { return int(r["n"].(float64))%2 == 0 })

	require.Equal(t, 2, even.Len())
	assert.Equal(t, 2.0, even.Row(0)["n"])
	assert.Equal(t, 4.0, even.Row(1)["n"])
	assert.Equal(t, 4, tbl.Len(), "source table is untouched")
}

func TestTable_CloneIsIndependent(t *testing.T) {
	tbl := FromRecords([]map[string]any{{"q": "one"}})
	c := tbl.Clone()
	c.Row(0)["q"] = "changed"

	assert.Equal(t, "one", tbl.Row(0)["q"])
}

func TestText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{42.0, "42"},
		{0.25, "0.25"},
		{int64(7), "7"},
		{true, "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Text(tt.in))
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank(""))
	assert.False(t, IsBlank(" "))
	assert.False(t, IsBlank(0.0))
}
