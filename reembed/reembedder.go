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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// ErrModelRequired is returned when no embedding model name is configured.
var ErrModelRequired = errors.New("embedding model name required")

// Config holds configuration for a reembedding run.
type Config struct {
	// Model names the embedding model recorded in the manifest.
	Model string

	// BatchSize is the number of fragments embedded per request.
	BatchSize int

	// ReportInterval is how often progress is reported, in fragments.
	ReportInterval int

	// MaxRetries bounds the attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	switch {
	case c.Model == "":
		return ErrModelRequired
	case c.BatchSize <= 0:
		return fmt.Errorf("batch-size must be greater than 0")
	case c.ReportInterval <= 0:
		return fmt.Errorf("report-interval must be greater than 0")
	case c.MaxRetries <= 0:
		return ai.ErrInvalidMaxAttempts
	}
	return nil
}

// Reembedder replaces every fragment vector in an index.
type Reembedder struct {
	fragments storage.FragmentRepository
	manifests storage.ManifestRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *FragmentIterator
}

// NewReembedder creates a reembedder writing progress to progress.
func NewReembedder(fragments storage.FragmentRepository, manifests storage.ManifestRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reembedder{
		fragments: fragments,
		manifests: manifests,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(fragments, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewFragmentIterator(fragments, config.BatchSize),
	}
}

// Run reembeds every fragment, then records the new model in the manifest.
// A failed batch aborts the run; fragments already processed keep their new
// vectors and the manifest is left untouched.
func (r *Reembedder) Run(ctx context.Context) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	total, err := r.fragments.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count fragments: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No fragments found in index\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Reembedding %d fragments with %s (batch size: %d)\n",
		total, r.config.Model, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	dims := 0
	err = r.iterator.ForEach(ctx, func(fragments []*core.Fragment) error {
		n, err := r.processor.Process(ctx, fragments)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		if dims != 0 && n != dims {
			return fmt.Errorf("embedding dimensions changed mid-run: %d then %d", dims, n)
		}
		dims = n
		tracker.Increment(len(fragments))
		return nil
	})
	if err != nil {
		return err
	}
	tracker.Finish()

	manifest, err := r.manifests.LoadManifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if manifest == nil {
		manifest = &core.IndexManifest{CreatedAt: time.Now().UTC()}
	}
	manifest.EmbeddingModel = r.config.Model
	manifest.Dimensions = dims
	if err := r.manifests.SaveManifest(ctx, manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d fragments in %v\n",
		total, elapsed.Round(time.Millisecond))
	return nil
}
