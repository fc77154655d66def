package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/docent/core"
)

var (
	// ErrRepositoryRequired is returned when a fragment repository is not provided.
	ErrRepositoryRequired = errors.New("fragment repository required")

	// ErrManifestRepositoryRequired is returned when a manifest repository is not provided.
	ErrManifestRepositoryRequired = errors.New("manifest repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrExtractorRequired is returned when an extraction chain is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrRegistryRequired is returned when an approval registry is not provided.
	ErrRegistryRequired = errors.New("approval registry required")

	// ErrWriterRequired is returned when an index writer is not provided.
	ErrWriterRequired = errors.New("index writer required")

	// ErrInvalidChunkConfig is returned for a non-positive size or an overlap outside [0, size].
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrJobNotFound is returned when polling an unknown or expired job id.
	ErrJobNotFound = errors.New("ingestion job not found")

	// ErrIngestInProgress is returned when a document is already being ingested.
	ErrIngestInProgress = errors.New("document is already being ingested")
)

// BatchWriteError reports one failed writer batch. It matches both
// core.ErrBatchWrite and the underlying cause.
type BatchWriteError struct {
	Batch   int // 1-based batch number
	Batches int
	Size    int
	Err     error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("batch %d/%d (%d fragments): %v", e.Batch, e.Batches, e.Size, e.Err)
}

func (e *BatchWriteError) Unwrap() []error {
	return []error{core.ErrBatchWrite, e.Err}
}
