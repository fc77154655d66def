package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/approval"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longDocument is past the small-file threshold so it goes through the cascade.
var longDocument = sentences(60)

type recordingMonitor struct {
	ingested []string
	failed   []string
	deleted  []string
}

func (m *recordingMonitor) Ingested(document string, _, _ int, _ time.Duration) {
	m.ingested = append(m.ingested, document)
}
func (m *recordingMonitor) Failed(document string, _ error) { m.failed = append(m.failed, document) }
func (m *recordingMonitor) Deleted(document string, _ int)  { m.deleted = append(m.deleted, document) }

type pipelineFixture struct {
	pipeline *Pipeline
	registry *approval.Registry
	embedder *mock.MockEmbedder
	scratch  string
	index    interface {
		Count(context.Context) (int, error)
		GetFragmentsBySource(context.Context, string) ([]*core.Fragment, error)
	}
}

func setupTestPipeline(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()
	index := setupTestIndex(t)
	embedder := mock.NewMockEmbedder()
	writer := newTestWriter(t, index, embedder)
	chain, err := extract.NewChain()
	require.NoError(t, err)
	registry := approval.NewRegistry()
	scratch := t.TempDir()

	opts = append([]Option{WithScratchDir(scratch), WithIndexDir("/var/lib/docent")}, opts...)
	pipeline, err := NewPipeline(index.Fragments, chain, writer, registry, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return &pipelineFixture{pipeline: pipeline, registry: registry, embedder: embedder, scratch: scratch, index: index.Fragments}
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewPipeline(t *testing.T) {
	index := setupTestIndex(t)
	writer := newTestWriter(t, index, mock.NewMockEmbedder())
	chain, err := extract.NewChain()
	require.NoError(t, err)
	registry := approval.NewRegistry()

	t.Run("valid pipeline", func(t *testing.T) {
		pipeline, err := NewPipeline(index.Fragments, chain, writer, registry)
		require.NoError(t, err)
		defer pipeline.Release()
		assert.NotNil(t, pipeline.jobPool)
		assert.NotNil(t, pipeline.Jobs())
		assert.Equal(t, DefaultChunkSize, pipeline.chunker.Size())
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewPipeline(nil, chain, writer, registry)
		assert.Equal(t, ErrRepositoryRequired, err)
	})

	t.Run("nil extractor", func(t *testing.T) {
		_, err := NewPipeline(index.Fragments, nil, writer, registry)
		assert.Equal(t, ErrExtractorRequired, err)
	})

	t.Run("nil writer", func(t *testing.T) {
		_, err := NewPipeline(index.Fragments, chain, nil, registry)
		assert.Equal(t, ErrWriterRequired, err)
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := NewPipeline(index.Fragments, chain, writer, nil)
		assert.Equal(t, ErrRegistryRequired, err)
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.Default()
		chunker, err := NewChunker(400, 40)
		require.NoError(t, err)
		pipeline, err := NewPipeline(index.Fragments, chain, writer, registry,
			WithPoolSize(0), WithLogger(logger), WithChunker(chunker))
		require.NoError(t, err)
		defer pipeline.Release()
		assert.Equal(t, 400, pipeline.chunker.Size())
	})

	t.Run("nil chunker", func(t *testing.T) {
		_, err := NewPipeline(index.Fragments, chain, writer, registry, WithChunker(nil))
		assert.ErrorIs(t, err, ErrInvalidChunkConfig)
	})
}

func TestPipeline_Ingest(t *testing.T) {
	monitor := &recordingMonitor{}
	f := setupTestPipeline(t, WithMonitor(monitor))
	ctx := context.Background()

	result, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)
	assert.Equal(t, "calendar.txt", result.Document)
	require.GreaterOrEqual(t, result.Fragments, 3)
	assert.Equal(t, result.Fragments, result.Stored)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "/var/lib/docent", result.StoredAt)

	state, known := f.registry.State("calendar.txt")
	require.True(t, known)
	assert.Equal(t, core.StatePending, state)

	fragments, err := f.index.GetFragmentsBySource(ctx, "calendar.txt")
	require.NoError(t, err)
	require.Len(t, fragments, result.Fragments)
	for i, fragment := range fragments {
		assert.Equal(t, i, fragment.ChunkID)
		assert.Equal(t, "calendar.txt", fragment.Metadata[core.MetaSource])
		assert.Contains(t, longDocument, fragment.Text)
	}
	assert.True(t, strings.HasPrefix(fragments[0].Text, "Sentence number 0 "))

	assertScratchEmpty(t, f.scratch)
	assert.Equal(t, []string{"calendar.txt"}, monitor.ingested)
}

func TestPipeline_ReingestReplaces(t *testing.T) {
	f := setupTestPipeline(t)
	ctx := context.Background()

	_, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)
	require.NoError(t, f.registry.Approve("calendar.txt"))

	_, err = f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader("Only one line now."))
	require.NoError(t, err)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, f.registry.IsApproved("calendar.txt"))
}

func TestPipeline_ReingestResetsApprovalBeforeWriting(t *testing.T) {
	f := setupTestPipeline(t)
	ctx := context.Background()

	_, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)
	require.NoError(t, f.registry.Approve("calendar.txt"))

	var approvedDuringWrite bool
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		approvedDuringWrite = approvedDuringWrite || f.registry.IsApproved("calendar.txt")
		return nil, errors.New("embedding service down")
	}

	_, err = f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader("Only one line now."))
	require.Error(t, err)
	assert.False(t, approvedDuringWrite)

	state, known := f.registry.State("calendar.txt")
	assert.True(t, known)
	assert.Equal(t, core.StatePending, state)
}

func TestPipeline_ReingestUnchanged(t *testing.T) {
	monitor := &recordingMonitor{}
	f := setupTestPipeline(t, WithMonitor(monitor))
	ctx := context.Background()

	first, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)
	require.NoError(t, f.registry.Approve("calendar.txt"))
	before, err := f.index.GetFragmentsBySource(ctx, "calendar.txt")
	require.NoError(t, err)
	calls := f.embedder.CallCount()

	again, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)
	assert.True(t, again.Unchanged)
	assert.False(t, first.Unchanged)
	assert.Equal(t, first.Stored, again.Stored)
	assert.Equal(t, calls, f.embedder.CallCount())
	assert.False(t, f.registry.IsApproved("calendar.txt"))
	assert.Equal(t, []string{"calendar.txt", "calendar.txt"}, monitor.ingested)

	after, err := f.index.GetFragmentsBySource(ctx, "calendar.txt")
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Id, after[i].Id)
	}

	changed, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument+" One more sentence."))
	require.NoError(t, err)
	assert.False(t, changed.Unchanged)
	assert.Greater(t, f.embedder.CallCount(), calls)
}

func TestPipeline_IngestFailures(t *testing.T) {
	tests := []struct {
		name     string
		document string
		content  string
		wantErr  error
	}{
		{"invalid key", "../etc/passwd", "x", core.ErrInvalidDocumentKey},
		{"unsupported type", "photo.png", "binary", core.ErrExtractionUnavailable},
		{"blank text", "blank.txt", "   \n\n", core.ErrExtractionUnavailable},
		{"normalizes to nothing", "nbsp.txt", "&nbsp;", core.ErrEmptyContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := &recordingMonitor{}
			f := setupTestPipeline(t, WithMonitor(monitor))

			_, err := f.pipeline.Ingest(context.Background(), tt.document, strings.NewReader(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			assertScratchEmpty(t, f.scratch)
			_, known := f.registry.State(tt.document)
			assert.False(t, known)
			assert.Len(t, monitor.failed, 1)
		})
	}
}

func TestPipeline_Delete(t *testing.T) {
	monitor := &recordingMonitor{}
	f := setupTestPipeline(t, WithMonitor(monitor))
	ctx := context.Background()

	result, err := f.pipeline.Ingest(ctx, "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)

	removed, err := f.pipeline.Delete(ctx, "calendar.txt")
	require.NoError(t, err)
	assert.Equal(t, result.Fragments, removed)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	_, known := f.registry.State("calendar.txt")
	assert.False(t, known)

	_, err = f.pipeline.Delete(ctx, "calendar.txt")
	assert.ErrorIs(t, err, core.ErrDocumentNotFound)

	_, err = f.pipeline.Delete(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidDocumentKey)
	assert.Equal(t, []string{"calendar.txt"}, monitor.deleted)
}

func TestPipeline_DeleteRegistryOnly(t *testing.T) {
	f := setupTestPipeline(t)
	f.registry.Register("orphan.pdf")

	removed, err := f.pipeline.Delete(context.Background(), "orphan.pdf")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestPipeline_Submit(t *testing.T) {
	f := setupTestPipeline(t)

	id, err := f.pipeline.Submit("calendar.txt", []byte(longDocument))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "calendar.txt_"))

	require.Eventually(t, func() bool {
		job, err := f.pipeline.Jobs().Get(id)
		return err == nil && job.Status == JobCompleted
	}, 5*time.Second, 10*time.Millisecond)

	job, err := f.pipeline.Jobs().Get(id)
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
	assert.GreaterOrEqual(t, job.Fragments, 3)

	state, known := f.registry.State("calendar.txt")
	require.True(t, known)
	assert.Equal(t, core.StatePending, state)
}

func TestPipeline_SubmitFailureRecorded(t *testing.T) {
	f := setupTestPipeline(t)

	id, err := f.pipeline.Submit("photo.png", []byte("not text"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := f.pipeline.Jobs().Get(id)
		return err == nil && job.Status == JobError
	}, 5*time.Second, 10*time.Millisecond)

	job, err := f.pipeline.Jobs().Get(id)
	require.NoError(t, err)
	assert.Contains(t, job.Error, "no extraction strategy succeeded")
}

func TestPipeline_SubmitInvalidKey(t *testing.T) {
	f := setupTestPipeline(t)
	_, err := f.pipeline.Submit("a/b.txt", []byte("x"))
	assert.ErrorIs(t, err, core.ErrInvalidDocumentKey)
}

func TestPipeline_RejectsConcurrentIngest(t *testing.T) {
	f := setupTestPipeline(t)
	require.True(t, f.pipeline.claim("calendar.txt"))

	_, err := f.pipeline.Ingest(context.Background(), "calendar.txt", strings.NewReader(longDocument))
	assert.ErrorIs(t, err, ErrIngestInProgress)

	_, err = f.pipeline.Submit("calendar.txt", []byte(longDocument))
	assert.ErrorIs(t, err, ErrIngestInProgress)

	// other keys are unaffected
	_, err = f.pipeline.Ingest(context.Background(), "handbook.txt", strings.NewReader(longDocument))
	require.NoError(t, err)

	f.pipeline.inflight.Delete("calendar.txt")
	_, err = f.pipeline.Ingest(context.Background(), "calendar.txt", strings.NewReader(longDocument))
	require.NoError(t, err)
}
