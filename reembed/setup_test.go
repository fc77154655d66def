package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage/badger"
)

type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls          int
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 2} // magnitude 3
	}
	return out, nil
}

func setupIndex(t *testing.T, n int) *badger.MemoryIndex {
	t.Helper()
	index, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	fragments := make([]*core.Fragment, n)
	for i := range fragments {
		fragments[i] = core.NewFragment("handbook.pdf", i, fmt.Sprintf("section %d of the handbook", i), nil)
		fragments[i].Vector = []float32{1, 0}
	}
	if n > 0 {
		_, err = index.Fragments.AddFragments(context.Background(), fragments...)
		require.NoError(t, err)
		require.NoError(t, index.Manifest.SaveManifest(context.Background(), &core.IndexManifest{
			EmbeddingModel: "old-model",
			Dimensions:     2,
		}))
	}
	return index
}

func magnitude(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return sum
}
