package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docent/core"
)

func TestBatchProcessor_Process(t *testing.T) {
	index := setupIndex(t, 3)
	ctx := context.Background()
	page, err := index.Fragments.ListFragments(ctx, 0, 10)
	require.NoError(t, err)

	dims, err := NewBatchProcessor(index.Fragments, &mockEmbedder{}, 3, time.Millisecond).Process(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)

	updated, err := index.Fragments.GetFragmentsBySource(ctx, "handbook.pdf")
	require.NoError(t, err)
	require.Len(t, updated, 3)
	for _, f := range updated {
		require.Len(t, f.Vector, 3)
		assert.InDelta(t, 1.0, magnitude(f.Vector), 0.01)
		assert.Contains(t, f.Text, "section")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	embedder := &mockEmbedder{}
	dims, err := NewBatchProcessor(nil, embedder, 3, time.Millisecond).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, dims)
	assert.Zero(t, embedder.calls)
}

func TestBatchProcessor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		embed func(ctx context.Context, texts []string) ([][]float32, error)
		calls int
	}{
		{
			name: "retries then fails",
			embed: func(context.Context, []string) ([][]float32, error) {
				return nil, errors.New("connection refused")
			},
			calls: 2,
		},
		{
			name: "count mismatch",
			embed: func(context.Context, []string) ([][]float32, error) {
				return [][]float32{{1, 0}}, nil
			},
			calls: 1,
		},
		{
			name: "ragged dimensions",
			embed: func(_ context.Context, texts []string) ([][]float32, error) {
				out := make([][]float32, len(texts))
				for i := range out {
					out[i] = make([]float32, 2+i)
					out[i][0] = 1
				}
				return out, nil
			},
			calls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := setupIndex(t, 2)
			ctx := context.Background()
			page, err := index.Fragments.ListFragments(ctx, 0, 10)
			require.NoError(t, err)

			embedder := &mockEmbedder{embedTextsFunc: tt.embed}
			_, err = NewBatchProcessor(index.Fragments, embedder, 2, time.Millisecond).Process(ctx, page)
			require.Error(t, err)
			assert.Equal(t, tt.calls, embedder.calls)

			stored, err := index.Fragments.GetFragmentsBySource(ctx, "handbook.pdf")
			require.NoError(t, err)
			for _, f := range stored {
				assert.Equal(t, []float32{1, 0}, f.Vector)
			}
		})
	}
}

func TestBatchProcessor_UnknownFragment(t *testing.T) {
	index := setupIndex(t, 0)
	ghost := core.NewFragment("ghost.pdf", 0, "gone", nil)
	ghost.Id = 42
	_, err := NewBatchProcessor(index.Fragments, &mockEmbedder{}, 1, time.Millisecond).Process(context.Background(), []*core.Fragment{ghost})
	assert.Error(t, err)
}
