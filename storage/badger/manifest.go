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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/dataforge/storage"
)

// ManifestRepository implements storage.ManifestStore for BadgerDB.
type ManifestRepository struct {
	backend *Backend
}

var _ storage.ManifestStore = (*ManifestRepository)(nil)

// NewManifestRepository creates a new ManifestRepository.
func NewManifestRepository(backend *Backend) *ManifestRepository {
	return &ManifestRepository{
		backend: backend,
	}
}

// Close releases resources. The backend is owned by the caller.
func (r *ManifestRepository) Close() error {
	return nil
}

// RecordStage persists a stage record and removes any later stages of the
// same pipeline.
func (r *ManifestRepository) RecordStage(ctx context.Context, record *storage.StageRecord) error {
	if record == nil || record.PipelineID == "" {
		return errors.New("stage record requires a pipeline id")
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if record.WrittenAt.IsZero() {
		record.WrittenAt = time.Now().UTC()
	}
	value, err := storage.MarshalStageRecord(record)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeStagePrefix(record.PipelineID)
		for _, key := range keysWithPrefix(tx, prefix) {
			if isStageKey(prefix, key) && stageFromKey(key) > record.Stage {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
		}
		if err := tx.Set(makeStageKey(record.PipelineID, record.Stage), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LastStage returns the highest recorded stage of a pipeline.
// Returns nil, nil if nothing has been recorded.
func (r *ManifestRepository) LastStage(ctx context.Context, pipelineID string) (*storage.StageRecord, error) {
	stages, err := r.Stages(ctx, pipelineID)
	if err != nil || len(stages) == 0 {
		return nil, err
	}
	return stages[len(stages)-1], nil
}

// Stages returns every recorded stage of a pipeline in ascending order.
func (r *ManifestRepository) Stages(ctx context.Context, pipelineID string) ([]*storage.StageRecord, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var records []*storage.StageRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeStagePrefix(pipelineID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !isStageKey(opts.Prefix, iter.Item().Key()) {
				continue
			}
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalStageRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Clear removes every stage record of a pipeline.
func (r *ManifestRepository) Clear(ctx context.Context, pipelineID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeStagePrefix(pipelineID)
		for _, key := range keysWithPrefix(tx, prefix) {
			if !isStageKey(prefix, key) {
				continue
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
