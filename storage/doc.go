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

// Package storage provides the tabular storage layer shared by pipeline operators.
//
// A Storage handle owns an initial input resource, a cache directory for
// intermediate stage artifacts and a stage cursor. Operators read the table at
// the current cursor and write their result to the next stage:
//
//	s, err := storage.NewFileStorage("input.jsonl",
//	    storage.WithCacheDir("./cache"),
//	    storage.WithCacheType("jsonl"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cols, err := filter.Run(ctx, s.Step())   // reads input.jsonl, writes stage 1
//	cols, err = generator.Run(ctx, s.Step()) // reads stage 1, writes stage 2
//
// # Stage Files
//
// Stage artifacts are named <prefix>_<stage>.<ext> inside the cache directory.
// Cursor 0 always resolves to the original input. The mapping from cursor to
// artifact is pure, so a pipeline can be resumed by positioning the cursor at
// the last completed stage; a ManifestStore (see storage/badger) records which
// stages completed.
//
// # Formats
//
// Files are parsed by extension: json (row array), jsonl (one object per
// line), csv, parquet and msgpack. CSV cells are read back as strings.
//
// # Remote Inputs
//
// The input may be a remote reference instead of a path:
//
//	hf:openai/gsm8k:main:train
//	ms:modelscope/gsm8k:train
//	s3:my-bucket/datasets/seed.jsonl
//
// Remote inputs are downloaded once, on the first read at cursor 0, and cached
// under the cache directory.
//
// # Concurrency
//
// A Storage handle is owned by a single pipeline. The cursor is not guarded;
// do not share one handle across concurrently running pipelines.
package storage
