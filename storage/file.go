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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/dataforge/core"
)

const (
	DefaultCacheDir   = "./cache"
	DefaultFilePrefix = "dataflow_cache_step"
	DefaultCacheType  = "jsonl"
)

// FileStorage is a Storage keeping every stage as a file in a cache directory.
type FileStorage struct {
	input      string
	cacheDir   string
	prefix     string
	cacheType  string
	cursor     int
	resolvers  map[string]Resolver
	resolved   string
	manifest   ManifestStore
	pipelineID string
	logger     *slog.Logger
}

var (
	_ Storage   = (*FileStorage)(nil)
	_ Resumable = (*FileStorage)(nil)
)

// Option configures a FileStorage.
type Option func(*FileStorage) error

// WithCacheDir sets the directory for stage artifacts. Default is ./cache.
func WithCacheDir(dir string) Option {
	return func(s *FileStorage) error {
		if dir == "" {
			return errors.New("cache dir cannot be empty")
		}
		s.cacheDir = dir
		return nil
	}
}

// WithFilePrefix sets the stage file prefix. Default is dataflow_cache_step.
func WithFilePrefix(prefix string) Option {
	return func(s *FileStorage) error {
		if prefix == "" {
			return errors.New("file prefix cannot be empty")
		}
		s.prefix = prefix
		return nil
	}
}

// WithCacheType sets the format of stage artifacts. Default is jsonl.
func WithCacheType(format string) Option {
	return func(s *FileStorage) error {
		if _, err := codecFor(format); err != nil {
			return err
		}
		s.cacheType = format
		return nil
	}
}

// WithResolver registers the resolver for a remote provider, replacing any default.
func WithResolver(provider string, r Resolver) Option {
	return func(s *FileStorage) error {
		s.resolvers[provider] = r
		return nil
	}
}

// WithManifest records every written stage in m under pipelineID.
func WithManifest(m ManifestStore, pipelineID string) Option {
	return func(s *FileStorage) error {
		if pipelineID == "" {
			return errors.New("pipeline id cannot be empty")
		}
		s.manifest = m
		s.pipelineID = pipelineID
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStorage) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "storage")
		return nil
	}
}

// NewFileStorage creates a storage whose stage 0 is input, a local path or
// a remote reference understood by ParseRef.
func NewFileStorage(input string, opts ...Option) (*FileStorage, error) {
	if input == "" {
		return nil, errors.New("input cannot be empty")
	}
	if _, _, err := ParseRef(input); err != nil {
		return nil, err
	}
	s := &FileStorage{
		input:     input,
		cacheDir:  DefaultCacheDir,
		prefix:    DefaultFilePrefix,
		cacheType: DefaultCacheType,
		cursor:    -1,
		resolvers: map[string]Resolver{
			ProviderHuggingFace: NewHuggingFaceResolver(),
			ProviderModelScope:  NewModelScopeResolver(),
		},
		logger: slog.Default().With("component", "storage"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Step advances the cursor by one and returns the handle.
func (s *FileStorage) Step() Storage {
	s.cursor++
	return s
}

// Reset returns the cursor to -1 and returns the handle.
func (s *FileStorage) Reset() Storage {
	s.cursor = -1
	return s
}

// Cursor returns the current stage cursor.
func (s *FileStorage) Cursor() int {
	return s.cursor
}

// SetCursor positions the cursor explicitly.
func (s *FileStorage) SetCursor(cursor int) {
	if cursor < -1 {
		cursor = -1
	}
	s.cursor = cursor
}

// CacheDir returns the directory holding stage artifacts.
func (s *FileStorage) CacheDir() string {
	return s.cacheDir
}

// StagePath returns the artifact path of a stage > 0.
func (s *FileStorage) StagePath(stage int) string {
	return filepath.Join(s.cacheDir, fmt.Sprintf("%s_%d.%s", s.prefix, stage, s.cacheType))
}

// Read parses the artifact at the current cursor.
func (s *FileStorage) Read(ctx context.Context) (*core.Table, error) {
	path, err := s.currentPath(ctx)
	if err != nil {
		return nil, err
	}
	t, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("read stage", "cursor", s.cursor, "path", path, "rows", t.Len())
	return t, nil
}

// ReadRecords parses the artifact at the current cursor into row mappings.
func (s *FileStorage) ReadRecords(ctx context.Context) ([]map[string]any, error) {
	t, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}
	return t.Records(), nil
}

// Write persists data to stage cursor+1.
func (s *FileStorage) Write(ctx context.Context, data any) (string, error) {
	t, err := AsTable(data)
	if err != nil {
		return "", err
	}
	stage := s.cursor + 1
	path := s.StagePath(stage)
	encoded, err := Encode(s.cacheType, t)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, bytes.NewReader(encoded)); err != nil {
		return "", err
	}
	s.logger.Debug("wrote stage", "stage", stage, "path", path, "rows", t.Len())

	if s.manifest != nil {
		record := &StageRecord{
			PipelineID: s.pipelineID,
			Stage:      stage,
			Path:       path,
			Format:     s.cacheType,
			Rows:       t.Len(),
			Columns:    t.Columns(),
			Checksum:   core.IDFromBytes(encoded),
			WrittenAt:  time.Now().UTC(),
		}
		if err := s.manifest.RecordStage(ctx, record); err != nil {
			return "", fmt.Errorf("record stage %d: %w", stage, err)
		}
	}
	return path, nil
}

// Resume positions the cursor one before the last completed stage so the
// next Step reads it. The artifact is verified against its recorded checksum.
func (s *FileStorage) Resume(ctx context.Context) (int, error) {
	if s.manifest == nil {
		return 0, ErrNoManifest
	}
	last, err := s.manifest.LastStage(ctx, s.pipelineID)
	if err != nil {
		return 0, err
	}
	if last == nil {
		s.cursor = -1
		return 0, nil
	}
	data, err := os.ReadFile(last.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: stage %d: %w", ErrStageCorrupt, last.Stage, err)
	}
	if core.IDFromBytes(data) != last.Checksum {
		return 0, fmt.Errorf("%w: stage %d checksum mismatch", ErrStageCorrupt, last.Stage)
	}
	s.cursor = last.Stage - 1
	s.logger.Info("resuming pipeline", "pipeline", s.pipelineID, "stage", last.Stage)
	return last.Stage, nil
}

// Forget clears the manifest records of this pipeline.
func (s *FileStorage) Forget(ctx context.Context) error {
	if s.manifest == nil {
		return ErrNoManifest
	}
	if err := s.manifest.Clear(ctx, s.pipelineID); err != nil {
		return err
	}
	s.logger.Debug("stage records cleared", "pipeline", s.pipelineID)
	return nil
}

func (s *FileStorage) currentPath(ctx context.Context) (string, error) {
	switch {
	case s.cursor < 0:
		return "", ErrNoStage
	case s.cursor == 0:
		return s.inputPath(ctx)
	default:
		return s.StagePath(s.cursor), nil
	}
}

// inputPath resolves a remote input once and caches the local path.
func (s *FileStorage) inputPath(ctx context.Context) (string, error) {
	if s.resolved != "" {
		return s.resolved, nil
	}
	ref, remote, err := ParseRef(s.input)
	if err != nil {
		return "", err
	}
	if !remote {
		s.resolved = s.input
		return s.resolved, nil
	}

	resolver, ok := s.resolvers[ref.Provider]
	if !ok && ref.Provider == ProviderS3 {
		r, err := NewDefaultS3Resolver(ctx)
		if err != nil {
			return "", err
		}
		s.resolvers[ProviderS3] = r
		resolver, ok = r, true
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoResolver, ref.Provider)
	}
	path, err := resolver.Resolve(ctx, ref, filepath.Join(s.cacheDir, "remote"))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	s.resolved = path
	return path, nil
}

// AsTable converts the values accepted by Write into a table.
func AsTable(data any) (*core.Table, error) {
	switch v := data.(type) {
	case *core.Table:
		if v == nil {
			return nil, fmt.Errorf("%w: nil table", ErrUnsupportedType)
		}
		return v, nil
	case []map[string]any:
		return core.FromRecords(v), nil
	case []core.Row:
		return core.NewTable(nil, v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, data)
	}
}

// ReadFile parses a file in the format named by its extension.
func ReadFile(ctx context.Context, path string) (*core.Table, error) {
	if _, err := codecFor(FormatOf(path)); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(FormatOf(path), data)
}

// WriteFile writes data to path in the format named by its extension,
// outside of any stage numbering. Used for named branch outputs.
func WriteFile(ctx context.Context, path string, data any) error {
	t, err := AsTable(data)
	if err != nil {
		return err
	}
	encoded, err := Encode(FormatOf(path), t)
	if err != nil {
		return err
	}
	return writeAtomic(path, bytes.NewReader(encoded))
}
