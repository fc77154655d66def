package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Extractor converts a file on disk into raw text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Registry tracks which documents are visible to end users.
type Registry interface {
	Register(key string)
	Delete(key string) error
}

// Result describes a finished ingestion.
type Result struct {
	Document  string
	Fragments int    // fragments produced by the chunker
	Stored    int    // fragments committed to the index
	Failed    int    // failed writer batches
	Unchanged bool   // content hashes matched the stored version; nothing was re-embedded
	StoredAt  string // location of the index holding the fragments
}

// Pipeline orchestrates upload handling: scratch file, extraction,
// normalization, chunking, indexing and approval registration.
type Pipeline struct {
	fragments  storage.FragmentRepository
	extractor  Extractor
	chunker    *Chunker
	writer     *Writer
	registry   Registry
	jobs       *JobTracker
	jobPool    *ants.Pool
	scratchDir string
	indexDir   string
	monitor    Monitor
	logger     *slog.Logger

	// keys with an ingestion running
	inflight sync.Map
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many background jobs run concurrently.
// Default is 2.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.jobPool != nil {
			p.jobPool.Release()
		}
		p.jobPool = pool
		return nil
	}
}

// WithChunker replaces the default 800/100 chunker.
func WithChunker(chunker *Chunker) Option {
	return func(p *Pipeline) error {
		if chunker == nil {
			return fmt.Errorf("%w: nil chunker", ErrInvalidChunkConfig)
		}
		p.chunker = chunker
		return nil
	}
}

// WithScratchDir sets where uploads are staged. Default is os.TempDir().
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create scratch dir: %w", err)
		}
		p.scratchDir = dir
		return nil
	}
}

// WithIndexDir records where the index lives, reported in results.
func WithIndexDir(dir string) Option {
	return func(p *Pipeline) error {
		p.indexDir = dir
		return nil
	}
}

// WithJobTracker shares a job tracker.
func WithJobTracker(jobs *JobTracker) Option {
	return func(p *Pipeline) error {
		p.jobs = jobs
		return nil
	}
}

// WithMonitor sets the ingestion monitor.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	fragments storage.FragmentRepository,
	extractor Extractor,
	writer *Writer,
	registry Registry,
	opts ...Option,
) (*Pipeline, error) {
	if fragments == nil {
		return nil, ErrRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	chunker, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		fragments:  fragments,
		extractor:  extractor,
		chunker:    chunker,
		writer:     writer,
		registry:   registry,
		scratchDir: os.TempDir(),
		monitor:    noopMonitor{},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.jobPool == nil {
		pool, err := ants.NewPool(2)
		if err != nil {
			return nil, err
		}
		p.jobPool = pool
	}
	if p.jobs == nil {
		p.jobs = NewJobTracker(DefaultJobTTL)
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Jobs returns the tracker for background ingestions.
func (p *Pipeline) Jobs() *JobTracker {
	return p.jobs
}

// Ingest stores the document read from content under name, replacing any
// previous version. The document is registered as pending.
// It fails with ErrIngestInProgress while another ingestion of name runs.
func (p *Pipeline) Ingest(ctx context.Context, name string, content io.Reader) (*Result, error) {
	if !p.claim(name) {
		return nil, fmt.Errorf("%w: %s", ErrIngestInProgress, name)
	}
	defer p.inflight.Delete(name)
	return p.ingest(ctx, name, content, nil)
}

func (p *Pipeline) claim(name string) bool {
	_, running := p.inflight.LoadOrStore(name, struct{}{})
	return !running
}

// Submit stages content and ingests it in the background. The returned
// job id can be polled through Jobs(). Failures are recorded in the job.
func (p *Pipeline) Submit(name string, content []byte) (string, error) {
	if err := core.ValidateDocumentKey(name); err != nil {
		return "", err
	}
	if !p.claim(name) {
		return "", fmt.Errorf("%w: %s", ErrIngestInProgress, name)
	}

	id := p.jobs.Start(name)
	err := p.jobPool.Submit(func() {
		defer p.inflight.Delete(name)
		p.jobs.Progress(id, 0)
		result, err := p.ingest(context.Background(), name, bytes.NewReader(content), func(percent int) {
			p.jobs.Progress(id, percent)
		})
		if err != nil {
			p.jobs.Fail(id, err)
			return
		}
		p.jobs.Complete(id, result.Fragments)
	})
	if err != nil {
		p.inflight.Delete(name)
		p.jobs.Fail(id, err)
		return id, fmt.Errorf("failed to schedule ingestion: %w", err)
	}
	return id, nil
}

func (p *Pipeline) ingest(ctx context.Context, name string, content io.Reader, report func(percent int)) (result *Result, err error) {
	start := time.Now()
	if report == nil {
		report = func(int) {}
	}
	defer func() {
		if err != nil {
			p.logger.Error("ingestion failed", "document", name, "err", err)
			p.monitor.Failed(name, err)
		}
	}()

	if err := core.ValidateDocumentKey(name); err != nil {
		return nil, err
	}

	path, err := p.stage(name, content)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)
	report(10)

	raw, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	report(30)

	chunks := p.chunker.Chunk(Normalize(raw))
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyContent, name)
	}
	report(50)

	fragments := make([]*core.Fragment, len(chunks))
	for i, chunk := range chunks {
		fragments[i] = core.NewFragment(name, i, chunk, nil)
	}

	// Pending before any fragment changes, so new content is never served
	// under an earlier approval.
	p.registry.Register(name)

	existing, err := p.fragments.GetFragmentsBySource(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous version: %w", err)
	}
	if sameContent(existing, fragments) {
		elapsed := time.Since(start)
		p.monitor.Ingested(name, len(existing), 0, elapsed)
		p.logger.Info("document content unchanged, keeping stored fragments", "document", name,
			"fragments", len(existing), "elapsed", elapsed)
		return &Result{
			Document:  name,
			Fragments: len(chunks),
			Stored:    len(existing),
			Unchanged: true,
			StoredAt:  p.indexDir,
		}, nil
	}

	removed, err := p.fragments.DeleteBySource(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to replace previous version: %w", err)
	}
	if removed > 0 {
		p.logger.Info("replacing existing document", "document", name, "fragments", removed)
	}

	stored, err := p.writer.Store(ctx, fragments, func(completed, total int) {
		report(50 + 45*completed/total)
	})
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	p.monitor.Ingested(name, stored.Stored, stored.Failed, elapsed)
	p.logger.Info("ingested document", "document", name, "fragments", len(chunks),
		"stored", stored.Stored, "failed_batches", stored.Failed, "elapsed", elapsed)

	return &Result{
		Document:  name,
		Fragments: len(chunks),
		Stored:    stored.Stored,
		Failed:    stored.Failed,
		StoredAt:  p.indexDir,
	}, nil
}

// sameContent reports whether stored holds exactly the fragments in incoming,
// matched by chunk position and content hash.
func sameContent(stored, incoming []*core.Fragment) bool {
	if len(stored) == 0 || len(stored) != len(incoming) {
		return false
	}
	hashes := make(map[int]core.ID, len(stored))
	for _, f := range stored {
		hashes[f.ChunkID] = f.ContentHash
	}
	for _, f := range incoming {
		if h, ok := hashes[f.ChunkID]; !ok || h != f.ContentHash {
			return false
		}
	}
	return true
}

// stage writes content to a scratch file. The caller removes it.
func (p *Pipeline) stage(name string, content io.Reader) (string, error) {
	f, err := os.CreateTemp(p.scratchDir, "upload-*-"+filepath.Base(name))
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Delete removes a document's fragments and its approval record.
func (p *Pipeline) Delete(ctx context.Context, name string) (int, error) {
	if err := core.ValidateDocumentKey(name); err != nil {
		return 0, err
	}

	removed, err := p.fragments.DeleteBySource(ctx, name)
	if err != nil {
		return 0, err
	}
	regErr := p.registry.Delete(name)
	if regErr != nil && !errors.Is(regErr, core.ErrDocumentNotFound) {
		return removed, regErr
	}
	if removed == 0 && regErr != nil {
		return 0, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, name)
	}

	p.monitor.Deleted(name, removed)
	p.logger.Info("deleted document", "document", name, "fragments", removed)
	return removed, nil
}

// Release releases the worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.jobPool != nil {
		p.jobPool.Release()
	}
}
