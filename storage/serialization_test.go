package storage

import (
	"testing"
	"time"

	"github.com/poiesic/dataforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalStageRecord(t *testing.T) {
	record := &StageRecord{
		PipelineID: "reasoning",
		Stage:      3,
		Path:       "/tmp/cache/step_3.jsonl",
		Format:     "jsonl",
		Rows:       42,
		Columns:    []string{"question", "answer"},
		Checksum:   core.IDFromContent("artifact"),
		WrittenAt:  time.Date(2025, 3, 1, 12, 0, 0, 123000, time.UTC),
	}

	data, err := MarshalStageRecord(record)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalStageRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestUnmarshalStageRecord_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil data", nil},
		{"empty data", []byte{}},
		{"garbage", []byte{0xc1, 0xc1, 0xc1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalStageRecord(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
