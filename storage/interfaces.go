package storage

import (
	"context"
	"time"

	"github.com/poiesic/dataforge/core"
)

// Storage mediates every table read and write of a pipeline.
type Storage interface {
	// Read parses the artifact at the current cursor into a table.
	// Cursor 0 is the original input; cursor n > 0 is stage n.
	Read(ctx context.Context) (*core.Table, error)

	// ReadRecords is Read returning plain row mappings.
	ReadRecords(ctx context.Context) ([]map[string]any, error)

	// Write persists data to stage cursor+1 and returns the artifact path.
	// data must be a *core.Table, []map[string]any or []core.Row.
	Write(ctx context.Context, data any) (string, error)

	// Step advances the cursor by one and returns the same handle.
	Step() Storage

	// Reset returns the cursor to -1 and returns the same handle.
	Reset() Storage

	// Cursor returns the current stage cursor.
	Cursor() int
}

// Resumable is implemented by storages that can reposition their cursor
// from a record of completed stages.
type Resumable interface {
	// Resume positions the cursor so that the next Step reads the last
	// completed stage, and returns that stage. Zero means nothing completed.
	Resume(ctx context.Context) (int, error)

	// Forget discards the record of completed stages so a later Resume
	// starts from the beginning.
	Forget(ctx context.Context) error
}

// StageRecord describes one completed stage artifact.
type StageRecord struct {
	PipelineID string    `codec:"pipeline_id"`
	Stage      int       `codec:"stage"`
	Path       string    `codec:"path"`
	Format     string    `codec:"format"`
	Rows       int       `codec:"rows"`
	Columns    []string  `codec:"columns"`
	Checksum   core.ID   `codec:"checksum"`
	WrittenAt  time.Time `codec:"written_at"`
}

// ManifestStore records completed stages so pipelines can be resumed.
// Implementations must be safe for concurrent use.
type ManifestStore interface {
	// RecordStage stores a stage record and forgets any later stages of the
	// same pipeline, which are stale once an earlier stage is rewritten.
	RecordStage(ctx context.Context, record *StageRecord) error

	// LastStage returns the highest recorded stage, or nil, nil if none.
	LastStage(ctx context.Context, pipelineID string) (*StageRecord, error)

	// Stages returns all recorded stages in ascending order.
	Stages(ctx context.Context, pipelineID string) ([]*StageRecord, error)

	// Clear forgets every stage of a pipeline.
	Clear(ctx context.Context, pipelineID string) error
}

// Resolver downloads a remote dataset into dir and returns the local path.
// An already cached copy should be reused.
type Resolver interface {
	Resolve(ctx context.Context, ref Ref, dir string) (string, error)
}
