package badger

import (
	"encoding/binary"
)

const stageRecordPrefix = "stage"

// makeStagePrefix returns the key prefix shared by all stages of a pipeline.
// Format: prefix:pipelineID:
func makeStagePrefix(pipelineID string) []byte {
	return []byte(stageRecordPrefix + ":" + pipelineID + ":")
}

// makeStageKey generates the key of one stage record.
// Format: prefix:pipelineID:stage
func makeStageKey(pipelineID string, stage int) []byte {
	prefix := makeStagePrefix(pipelineID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// BigEndian keeps stages in numeric order under lexicographic iteration
	binary.BigEndian.PutUint64(buf[offset:], uint64(stage))
	return buf
}

// stageFromKey extracts the stage number from a stage key.
func stageFromKey(key []byte) int {
	if len(key) < 8 {
		return -1
	}
	return int(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// isStageKey reports whether key is a stage key directly under prefix, as
// opposed to one of a pipeline whose id merely starts with the same text.
func isStageKey(prefix, key []byte) bool {
	return len(key) == len(prefix)+8
}
