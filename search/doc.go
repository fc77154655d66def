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

// Package search retrieves the fragments most similar to a question.
//
// The Retriever embeds the query, ranks every stored fragment by cosine
// similarity and keeps the top k. Ties keep insertion order. When only
// approved documents may be seen, unapproved fragments are dropped after
// ranking without backfilling, so a filtered search can return fewer
// than k results.
package search
