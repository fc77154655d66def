package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// BatchProcessor embeds a batch of fragments and writes the vectors back.
type BatchProcessor struct {
	fragments      storage.FragmentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(fragments storage.FragmentRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		fragments:      fragments,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the fragments' text and replaces their vectors.
// It returns the dimensionality of the new vectors.
func (bp *BatchProcessor) Process(ctx context.Context, fragments []*core.Fragment) (int, error) {
	if len(fragments) == 0 {
		return 0, nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}
	if len(embeddings) != len(fragments) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(fragments), len(embeddings))
	}

	dims := len(embeddings[0])
	for i := range fragments {
		if len(embeddings[i]) != dims {
			return 0, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(embeddings[i]), dims)
		}
		fragments[i].Vector = core.NormalizeVector(embeddings[i])
	}

	if err := bp.fragments.UpdateVectors(ctx, fragments...); err != nil {
		return 0, fmt.Errorf("failed to update fragments: %w", err)
	}
	return dims, nil
}
