package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColumns(t *testing.T) {
	tbl := FromRecords([]map[string]any{{"question": "q", "answer": "a"}})

	tests := []struct {
		name            string
		required        []string
		forbidden       []string
		wantMissing     []string
		wantConflicting []string
	}{
		{
			name:      "valid",
			required:  []string{"question"},
			forbidden: []string{"score"},
		},
		{
			name:        "missing input",
			required:    []string{"question", "gt", "ref"},
			wantMissing: []string{"gt", "ref"},
		},
		{
			name:            "output exists",
			required:        []string{"question"},
			forbidden:       []string{"answer"},
			wantConflicting: []string{"answer"},
		},
		{
			name:            "both",
			required:        []string{"gt"},
			forbidden:       []string{"answer", "question"},
			wantMissing:     []string{"gt"},
			wantConflicting: []string{"answer", "question"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumns(tbl, tt.required, tt.forbidden)
			if tt.wantMissing == nil && tt.wantConflicting == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.wantMissing, schemaErr.Missing)
			assert.Equal(t, tt.wantConflicting, schemaErr.Conflicting)
		})
	}
}

func TestValidateColumns_NilTable(t *testing.T) {
	assert.ErrorIs(t, ValidateColumns(nil, nil, nil), ErrSchema)
}
