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


package core

import "errors"

// Pipeline errors shared across packages.
var (
	// ErrExtractionUnavailable indicates no extraction strategy produced text for a file.
	ErrExtractionUnavailable = errors.New("no extraction strategy succeeded")

	// ErrEmptyContent indicates extraction succeeded but produced no fragments.
	ErrEmptyContent = errors.New("document produced no content")

	// ErrIndexUnavailable indicates no vector index exists yet.
	ErrIndexUnavailable = errors.New("vector index is empty, ingest documents first")

	// ErrDocumentNotFound indicates an approval or delete on an unknown document key.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrGenerationFailure indicates the generative model call failed.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrGenerationDegraded indicates a rate-limited generation answered with a canned response.
	ErrGenerationDegraded = errors.New("generation degraded")

	// ErrBatchWrite indicates one ingestion batch failed to embed or persist.
	ErrBatchWrite = errors.New("batch write failed")
)

// Domain validation errors
var (
	// ErrInvalidDocumentKey indicates a document key is empty or not a plain file name.
	ErrInvalidDocumentKey = errors.New("invalid document key")

	// ErrInvalidFragment indicates a Fragment failed validation.
	ErrInvalidFragment = errors.New("invalid fragment")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")
)
