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


// Package storage provides the storage abstraction layer for docent.
//
// It defines the repository interfaces that decouple the vector index from
// the ingestion and retrieval pipelines, plus the MUS wire encoding of the
// stored records.
//
// # Architecture
//
//   - FragmentRepository: fragments, their embeddings and the per-document index
//   - ManifestRepository: the manifest recording which embedding model built the index
//
// An index is initialized once a manifest has been saved. Retrieval treats an
// index without a manifest as unavailable.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	fragments, err := badger.NewFragmentRepository(backend)
//
// Use in tests with in-memory storage:
//
//	index, err := badger.NewMemoryIndex()
//	defer index.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
