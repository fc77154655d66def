package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// embedBatch embeds the fragment texts with retries and stores the
// unit-length vectors on the fragments.
func embedBatch(ctx context.Context, embedder ai.Embedder, fragments []*core.Fragment, maxAttempts int, baseDelay time.Duration) error {
	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, maxAttempts, baseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(embeddings) != len(fragments) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(fragments), len(embeddings))
	}

	for i := range embeddings {
		if len(embeddings[i]) == 0 {
			return fmt.Errorf("empty embedding for fragment %d of %s", fragments[i].ChunkID, fragments[i].Source)
		}
		fragments[i].Vector = core.NormalizeVector(embeddings[i])
	}
	return nil
}
