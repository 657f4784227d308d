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

import "errors"

var (
	// ErrUnsupportedFormat indicates a file extension with no codec.
	ErrUnsupportedFormat = errors.New("unsupported storage format")

	// ErrMalformedContent indicates a file that could not be parsed in its format.
	ErrMalformedContent = errors.New("malformed content")

	// ErrUnsupportedType indicates Write was given neither a table nor a list of rows.
	ErrUnsupportedType = errors.New("unsupported data type for write")

	// ErrNoStage indicates a read before the cursor was advanced.
	ErrNoStage = errors.New("storage cursor has not been advanced")

	// ErrInvalidRemoteRef indicates a malformed remote dataset reference.
	ErrInvalidRemoteRef = errors.New("invalid remote dataset reference")

	// ErrNoResolver indicates a remote reference whose provider has no resolver.
	ErrNoResolver = errors.New("no resolver for remote provider")

	// ErrRemoteFetch indicates a remote dataset could not be downloaded.
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrNoManifest indicates a resume without a configured manifest.
	ErrNoManifest = errors.New("no stage manifest configured")

	// ErrStageCorrupt indicates a recorded stage artifact is missing or altered.
	ErrStageCorrupt = errors.New("stage artifact missing or altered")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
