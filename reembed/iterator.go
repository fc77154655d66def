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

package reembed

import (
	"context"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// DefaultBatchSize is the default number of fragments fetched per page.
const DefaultBatchSize = 100

// FragmentIterator pages over every stored fragment in ID order.
type FragmentIterator struct {
	fragments storage.FragmentRepository
	batchSize int
}

// NewFragmentIterator creates an iterator fetching batchSize fragments per page.
func NewFragmentIterator(fragments storage.FragmentRepository, batchSize int) *FragmentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &FragmentIterator{fragments: fragments, batchSize: batchSize}
}

// ForEach calls fn with each page of fragments.
// Iteration stops on the first error from fn or when ctx is cancelled.
func (it *FragmentIterator) ForEach(ctx context.Context, fn func([]*core.Fragment) error) error {
	var after core.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := it.fragments.ListFragments(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		after = page[len(page)-1].Id
		if len(page) < it.batchSize {
			return nil
		}
	}
}
