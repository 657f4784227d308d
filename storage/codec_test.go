package storage

import (
	"strings"
	"testing"

	"github.com/poiesic/dataforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *core.Table {
	return core.NewTable([]string{"question", "answer", "score"}, []core.Row{
		{"question": "What is 2+2?", "answer": "4", "score": 1.0},
		{"question": "一加一等于几？", "answer": "二", "score": 0.5},
		{"question": "<b>bold</b> & more", "answer": nil, "score": nil},
	})
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, format := range []string{"json", "jsonl", "parquet", "msgpack"} {
		t.Run(format, func(t *testing.T) {
			in := sampleTable()
			data, err := Encode(format, in)
			require.NoError(t, err)

			out, err := Decode(format, data)
			require.NoError(t, err)

			assert.Equal(t, in.Columns(), out.Columns())
			require.Equal(t, in.Len(), out.Len())
			for i := range in.Rows() {
				assert.Equal(t, in.Row(i), out.Row(i), "row %d", i)
			}
		})
	}
}

func TestCodecs_LargeIntegersSurviveStageHops(t *testing.T) {
	in, err := Decode("jsonl", []byte(`{"id": 9007199254740993, "score": 2.5, "whole": 3.0, "tags": [1, 1.5]}`+"\n"))
	require.NoError(t, err)
	require.Equal(t, int64(9007199254740993), in.Row(0)["id"])
	assert.Equal(t, 2.5, in.Row(0)["score"])
	assert.Equal(t, 3.0, in.Row(0)["whole"])
	assert.Equal(t, []any{int64(1), 1.5}, in.Row(0)["tags"])

	for _, format := range []string{"json", "jsonl", "msgpack", "parquet"} {
		t.Run(format, func(t *testing.T) {
			data, err := Encode(format, in)
			require.NoError(t, err)
			out, err := Decode(format, data)
			require.NoError(t, err)
			assert.Equal(t, int64(9007199254740993), out.Row(0)["id"])
			assert.Equal(t, 2.5, out.Row(0)["score"])
			assert.Equal(t, 3.0, out.Row(0)["whole"])
		})
	}

	data, err := Encode("jsonl", in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":9007199254740993`)
	assert.Contains(t, string(data), `"whole":3.0`)

	data, err = Encode("csv", in)
	require.NoError(t, err)
	out, err := Decode("csv", data)
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", out.Row(0)["id"])
}

func TestParquet_IntegerAndFloatColumns(t *testing.T) {
	in := core.NewTable([]string{"n", "mixed"}, []core.Row{
		{"n": int64(1), "mixed": int64(2)},
		{"n": int64(-5), "mixed": 0.5},
		{"n": nil, "mixed": nil},
	})
	data, err := Encode("parquet", in)
	require.NoError(t, err)
	out, err := Decode("parquet", data)
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Row(0)["n"])
	assert.Equal(t, int64(-5), out.Row(1)["n"])
	assert.Nil(t, out.Row(2)["n"])
	assert.Equal(t, 2.0, out.Row(0)["mixed"])
	assert.Equal(t, 0.5, out.Row(1)["mixed"])
}

func TestCSV_RoundTripCoercesToText(t *testing.T) {
	in := sampleTable()
	data, err := Encode("csv", in)
	require.NoError(t, err)

	out, err := Decode("csv", data)
	require.NoError(t, err)

	assert.Equal(t, in.Columns(), out.Columns())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, "1", out.Row(0)["score"])
	assert.Equal(t, "0.5", out.Row(1)["score"])
	assert.Equal(t, "一加一等于几？", out.Row(1)["question"])
	assert.Equal(t, "", out.Row(2)["answer"])
}

func TestJSON_KeepsNonASCIIUnescaped(t *testing.T) {
	for _, format := range []string{"json", "jsonl"} {
		data, err := Encode(format, sampleTable())
		require.NoError(t, err)
		assert.Contains(t, string(data), "一加一等于几？")
		assert.Contains(t, string(data), "<b>bold</b> & more")
	}
}

func TestJSONL_PreservesKeyOrder(t *testing.T) {
	data := "{\"z\": 1, \"a\": \"x\"}\n\n{\"m\": true, \"z\": 2}\n"

	out, err := Decode("jsonl", []byte(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, out.Columns())
	require.Equal(t, 2, out.Len())
	assert.Nil(t, out.Row(1)["a"])
	assert.Equal(t, true, out.Row(1)["m"])
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		format string
		data   string
	}{
		{"json", `{"not": "an array"}`},
		{"json", `[{"a": 1}`},
		{"jsonl", "{\"a\": 1}\nnot json\n"},
		{"jsonl", "[1, 2]\n"},
		{"csv", "a,b\n1,2,3\n"},
		{"parquet", "definitely not parquet"},
		{"msgpack", "\xc1\xc1"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := Decode(tt.format, []byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedContent)
		})
	}
}

func TestCodecFor_Unsupported(t *testing.T) {
	_, err := Encode("xlsx", sampleTable())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, strings.Contains(err.Error(), "jsonl"), "error lists supported formats")

	_, err = Decode("pkl", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_EmptyInputs(t *testing.T) {
	for _, format := range []string{"json", "jsonl", "csv"} {
		out, err := Decode(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, 0, out.Len(), format)
	}
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "jsonl", "msgpack", "parquet"}, Formats())
	assert.Equal(t, "jsonl", FormatOf("/tmp/x/Data.JSONL"))
	assert.Equal(t, "", FormatOf("noext"))
}
