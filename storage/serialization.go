// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/poiesic/dataforge/core"
)

// newMsgpackHandle returns a handle that decodes strings as string,
// integers as int64 and schema-less maps as map[string]any.
func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{WriteExt: true}
	h.RawToString = true
	h.SignedInteger = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}

func encodeMsgpack(in any) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, newMsgpackHandle()).Encode(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return buf.Bytes(), nil
}

func decodeMsgpack(data []byte, out any) error {
	if err := codec.NewDecoder(bytes.NewReader(data), newMsgpackHandle()).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}

// stageRecordWire is the persisted form of a StageRecord.
type stageRecordWire struct {
	PipelineID string   `codec:"pipeline_id"`
	Stage      int      `codec:"stage"`
	Path       string   `codec:"path"`
	Format     string   `codec:"format"`
	Rows       int      `codec:"rows"`
	Columns    []string `codec:"columns"`
	Checksum   uint64   `codec:"checksum"`
	WrittenAt  int64    `codec:"written_at"` // unix micro
}

// MarshalStageRecord serializes a StageRecord to bytes.
func MarshalStageRecord(record *StageRecord) ([]byte, error) {
	return encodeMsgpack(&stageRecordWire{
		PipelineID: record.PipelineID,
		Stage:      record.Stage,
		Path:       record.Path,
		Format:     record.Format,
		Rows:       record.Rows,
		Columns:    record.Columns,
		Checksum:   uint64(record.Checksum),
		WrittenAt:  record.WrittenAt.UnixMicro(),
	})
}

// UnmarshalStageRecord deserializes a StageRecord from bytes.
func UnmarshalStageRecord(data []byte) (*StageRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrSerializationFailed)
	}
	var w stageRecordWire
	if err := decodeMsgpack(data, &w); err != nil {
		return nil, err
	}
	return &StageRecord{
		PipelineID: w.PipelineID,
		Stage:      w.Stage,
		Path:       w.Path,
		Format:     w.Format,
		Rows:       w.Rows,
		Columns:    w.Columns,
		Checksum:   core.ID(w.Checksum),
		WrittenAt:  time.UnixMicro(w.WrittenAt).UTC(),
	}, nil
}

// msgpackTable is the msgpack cache format: column order plus positional rows.
type msgpackTable struct {
	Columns []string `codec:"columns"`
	Rows    [][]any  `codec:"rows"`
}

type msgpackCodec struct{}

func (msgpackCodec) encode(t *core.Table) ([]byte, error) {
	cols := t.Columns()
	out := msgpackTable{Columns: cols, Rows: make([][]any, t.Len())}
	for i, r := range t.Rows() {
		values := make([]any, len(cols))
		for j, c := range cols {
			values[j] = r[c]
		}
		out.Rows[i] = values
	}
	return encodeMsgpack(&out)
}

func (msgpackCodec) decode(data []byte) (*core.Table, error) {
	var in msgpackTable
	if err := decodeMsgpack(data, &in); err != nil {
		return nil, err
	}
	rows := make([]core.Row, len(in.Rows))
	for i, values := range in.Rows {
		if len(values) != len(in.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", ErrMalformedContent, i, len(values), len(in.Columns))
		}
		row := make(core.Row, len(values))
		for j, c := range in.Columns {
			row[c] = values[j]
		}
		rows[i] = row
	}
	return core.NewTable(in.Columns, rows), nil
}
