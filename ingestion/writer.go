package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const (
	// DefaultWriterWorkers is the number of batches embedded and written concurrently.
	DefaultWriterWorkers = 4

	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// ProgressFunc is called after every finished batch, successful or not.
type ProgressFunc func(completed, total int)

// StoreResult summarizes one Store call.
type StoreResult struct {
	Batches int
	Stored  int     // fragments committed
	Failed  int     // batches that failed
	Errors  []error // one *BatchWriteError per failed batch
}

// Writer embeds fragments and persists them into the fragment index.
type Writer struct {
	fragments   storage.FragmentRepository
	manifests   storage.ManifestRepository
	embedder    ai.Embedder
	model       string
	batchSize   int
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	initMu      sync.Mutex
	initialized atomic.Bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer) error

// WithBatchSize fixes the batch size. Zero restores adaptive sizing.
func WithBatchSize(size int) WriterOption {
	return func(w *Writer) error {
		if size < 0 {
			return fmt.Errorf("batch size must not be negative: %d", size)
		}
		w.batchSize = size
		return nil
	}
}

// WithWorkers sets how many batches run concurrently.
// Default is DefaultWriterWorkers.
func WithWorkers(size int) WriterOption {
	return func(w *Writer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if w.pool != nil {
			w.pool.Release()
		}
		w.pool = pool
		return nil
	}
}

// WithRetry sets the embedding retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) WriterOption {
	return func(w *Writer) error {
		if maxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		w.maxAttempts = maxAttempts
		w.baseDelay = baseDelay
		return nil
	}
}

// WithEmbeddingModel records the model name in the index manifest.
func WithEmbeddingModel(model string) WriterOption {
	return func(w *Writer) error {
		w.model = model
		return nil
	}
}

// WithWriterLogger sets a custom logger.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWriter creates an index writer.
func NewWriter(
	fragments storage.FragmentRepository,
	manifests storage.ManifestRepository,
	embedder ai.Embedder,
	opts ...WriterOption,
) (*Writer, error) {
	if fragments == nil {
		return nil, ErrRepositoryRequired
	}
	if manifests == nil {
		return nil, ErrManifestRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	w := &Writer{
		fragments:   fragments,
		manifests:   manifests,
		embedder:    embedder,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			w.Release()
			return nil, err
		}
	}

	if w.pool == nil {
		pool, err := ants.NewPool(DefaultWriterWorkers)
		if err != nil {
			return nil, err
		}
		w.pool = pool
	}
	w.logger = w.logger.With("component", "writer")
	return w, nil
}

// Release stops the batch pool.
func (w *Writer) Release() {
	if w.pool != nil {
		w.pool.Release()
	}
}

// BatchSize returns the batch size used for count fragments of the given
// average rune length.
func (w *Writer) BatchSize(count, averageLength int) int {
	if w.batchSize > 0 {
		return w.batchSize
	}
	switch {
	case count <= 10:
		return max(count, 1)
	case averageLength < 500:
		return 50
	case averageLength < 2000:
		return 20
	default:
		return 10
	}
}

// Store embeds and writes fragments. A failed batch does not stop the
// others; Store only errors when nothing could be written. Storing the
// same fragments twice stores two copies.
func (w *Writer) Store(ctx context.Context, fragments []*core.Fragment, progress ProgressFunc) (*StoreResult, error) {
	result := &StoreResult{}
	if len(fragments) == 0 {
		return result, nil
	}

	size := w.BatchSize(len(fragments), averageLength(fragments))
	batches := partition(fragments, size)
	result.Batches = len(batches)

	if len(batches) == 1 {
		err := w.writeBatch(ctx, batches[0], 1, 1)
		if progress != nil {
			progress(1, 1)
		}
		if err != nil {
			result.Failed = 1
			result.Errors = []error{err}
			return result, err
		}
		result.Stored = len(fragments)
		return result, nil
	}

	w.logger.Info("writing fragments", "fragments", len(fragments), "batches", len(batches), "batch_size", size)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
	)
	record := func(batch []*core.Fragment, err error) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
		} else {
			result.Stored += len(batch)
		}
		if progress != nil {
			progress(completed, len(batches))
		}
	}

	for i, batch := range batches {
		batchID := i + 1
		wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer wg.Done()
			record(batch, w.writeBatch(ctx, batch, batchID, len(batches)))
		})
		if submitErr != nil {
			wg.Done()
			record(batch, &BatchWriteError{Batch: batchID, Batches: len(batches), Size: len(batch), Err: submitErr})
		}
	}
	wg.Wait()

	if result.Failed == result.Batches {
		return result, fmt.Errorf("all %d batches failed: %w", result.Batches, errors.Join(result.Errors...))
	}
	if result.Failed > 0 {
		w.logger.Warn("some batches failed", "failed", result.Failed, "batches", result.Batches, "stored", result.Stored)
	}
	return result, nil
}

func (w *Writer) writeBatch(ctx context.Context, batch []*core.Fragment, batchID, batches int) error {
	fail := func(err error) error {
		w.logger.Error("batch write failed", "batch_id", batchID, "batches", batches, "err", err)
		return &BatchWriteError{Batch: batchID, Batches: batches, Size: len(batch), Err: err}
	}

	if err := embedBatch(ctx, w.embedder, batch, w.maxAttempts, w.baseDelay); err != nil {
		return fail(err)
	}
	if err := w.ensureIndex(ctx, len(batch[0].Vector)); err != nil {
		return fail(err)
	}
	if _, err := w.fragments.AddFragments(ctx, batch...); err != nil {
		return fail(err)
	}
	w.logger.Debug("batch written", "batch_id", batchID, "batches", batches, "fragments", len(batch))
	return nil
}

// ensureIndex writes the manifest the first time the index receives vectors.
func (w *Writer) ensureIndex(ctx context.Context, dimensions int) error {
	if w.initialized.Load() {
		return nil
	}
	w.initMu.Lock()
	defer w.initMu.Unlock()
	if w.initialized.Load() {
		return nil
	}

	manifest, err := w.manifests.LoadManifest(ctx)
	if err != nil {
		return err
	}
	if manifest == nil {
		manifest = &core.IndexManifest{
			EmbeddingModel: w.model,
			Dimensions:     dimensions,
			CreatedAt:      time.Now().UTC(),
		}
		if err := w.manifests.SaveManifest(ctx, manifest); err != nil {
			return fmt.Errorf("failed to initialize index: %w", err)
		}
		w.logger.Info("initialized index", "model", w.model, "dimensions", dimensions)
	}
	w.initialized.Store(true)
	return nil
}

func averageLength(fragments []*core.Fragment) int {
	total := 0
	for _, f := range fragments {
		total += len([]rune(f.Text))
	}
	return total / len(fragments)
}

func partition(fragments []*core.Fragment, size int) [][]*core.Fragment {
	batches := make([][]*core.Fragment, 0, (len(fragments)+size-1)/size)
	for start := 0; start < len(fragments); start += size {
		end := min(start+size, len(fragments))
		batches = append(batches, fragments[start:end])
	}
	return batches
}
