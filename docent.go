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


// Package docent is a document-grounded college assistant. It ingests
// uploaded documents into a persistent vector index, gates them behind
// administrator approval and answers student questions from them.
package docent

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/approval"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/conversation"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/metrics"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
)

// Docent wires the index, the approval registry, ingestion and answering
// around one badger directory.
type Docent struct {
	dir           string
	backend       *badger.Backend
	fragments     *badger.FragmentRepository
	manifests     *badger.ManifestRepository
	provider      ai.AIProvider
	registry      *approval.Registry
	conversations *conversation.Store
	extractor     *extract.Chain
	writer        *ingestion.Writer
	ingestion     *ingestion.Pipeline
	retriever     *search.Retriever
	answers       *answer.Pipeline
	logger        *slog.Logger
	closeOnce     sync.Once
	closeErr      error
}

// Option configures Open.
type Option func(*options)

type options struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	inMemory     bool
	chunkSize    int
	chunkOverlap int
	batchSize    int
	workers      int
	jobs         int
	scratchDir   string
	defaultK     int
	maxTurns     int
	institution  string
	metrics      *metrics.Metrics
	monitors     []ingestion.Monitor
	logger       *slog.Logger
}

// WithAIConfig sets the model endpoints. Ignored when WithProvider is used,
// except for the embedding model recorded in the index manifest.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) { o.aiConfig = cfg }
}

// WithProvider uses an existing AI provider instead of building one.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithInMemory keeps the index in memory. The directory is only reported.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithChunking sets the chunk size and overlap in runes.
func WithChunking(size, overlap int) Option {
	return func(o *options) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithBatchSize fixes the index batch size. Zero sizes batches adaptively.
func WithBatchSize(size int) Option {
	return func(o *options) { o.batchSize = size }
}

// WithWorkers sets the index writer pool size.
func WithWorkers(workers int) Option {
	return func(o *options) { o.workers = workers }
}

// WithJobs sets how many background ingestions run at once.
func WithJobs(jobs int) Option {
	return func(o *options) { o.jobs = jobs }
}

// WithScratchDir sets where uploads are staged during extraction.
func WithScratchDir(dir string) Option {
	return func(o *options) { o.scratchDir = dir }
}

// WithDefaultK sets how many fragments answer a question by default.
func WithDefaultK(k int) Option {
	return func(o *options) { o.defaultK = k }
}

// WithMaxTurns caps the turns remembered per conversation.
func WithMaxTurns(turns int) Option {
	return func(o *options) { o.maxTurns = turns }
}

// WithInstitution names the college answers are restricted to.
func WithInstitution(name string) Option {
	return func(o *options) { o.institution = name }
}

// WithMetrics reports ingestion, retrieval and answers to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithIngestionMonitor adds an observer of ingestion outcomes.
func WithIngestionMonitor(m ingestion.Monitor) Option {
	return func(o *options) { o.monitors = append(o.monitors, m) }
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// FromConfig translates a process configuration into options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithAIConfig(cfg.AIConfig()),
		WithChunking(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
		WithBatchSize(cfg.Ingestion.BatchSize),
		WithWorkers(cfg.Ingestion.Workers),
		WithJobs(cfg.Ingestion.Jobs),
		WithScratchDir(cfg.Storage.ScratchDir),
		WithDefaultK(cfg.Retrieval.DefaultK),
		WithMaxTurns(cfg.Retrieval.MaxTurns),
		WithInstitution(cfg.Server.Institution),
	}
}

// Open opens or creates the index in dir and wires every component.
// Documents already in the index are registered as pending.
func Open(ctx context.Context, dir string, opts ...Option) (*Docent, error) {
	o := &options{
		aiConfig:     ai.DefaultConfig(),
		chunkSize:    ingestion.DefaultChunkSize,
		chunkOverlap: ingestion.DefaultChunkOverlap,
		workers:      ingestion.DefaultWriterWorkers,
		jobs:         2,
		defaultK:     answer.DefaultK,
		maxTurns:     conversation.DefaultMaxTurns,
		institution:  answer.DefaultInstitution,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	d := &Docent{
		dir:           dir,
		registry:      approval.NewRegistry(),
		conversations: conversation.NewStore(o.maxTurns),
		logger:        o.logger,
	}
	if err := d.open(ctx, o); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Docent) open(ctx context.Context, o *options) error {
	var err error
	if d.backend, err = badger.OpenBackend(d.dir, o.inMemory); err != nil {
		return err
	}
	if d.fragments, err = badger.NewFragmentRepository(d.backend); err != nil {
		return err
	}
	d.manifests = badger.NewManifestRepository(d.backend)

	d.provider = o.provider
	if d.provider == nil {
		if d.provider, err = openai.NewProvider(o.aiConfig); err != nil {
			return err
		}
	}

	if err := d.checkManifest(ctx, o.aiConfig.EmbeddingModel); err != nil {
		return err
	}
	if err := d.seedRegistry(ctx); err != nil {
		return err
	}

	if d.extractor, err = extract.NewChain(extract.WithLogger(d.logger)); err != nil {
		return err
	}

	writerOpts := []ingestion.WriterOption{
		ingestion.WithWorkers(o.workers),
		ingestion.WithEmbeddingModel(o.aiConfig.EmbeddingModel),
		ingestion.WithWriterLogger(d.logger),
	}
	if o.batchSize > 0 {
		writerOpts = append(writerOpts, ingestion.WithBatchSize(o.batchSize))
	}
	if d.writer, err = ingestion.NewWriter(d.fragments, d.manifests, d.provider.Embedder(), writerOpts...); err != nil {
		return err
	}

	chunker, err := ingestion.NewChunker(o.chunkSize, o.chunkOverlap)
	if err != nil {
		return err
	}
	pipelineOpts := []ingestion.Option{
		ingestion.WithChunker(chunker),
		ingestion.WithPoolSize(o.jobs),
		ingestion.WithIndexDir(d.dir),
		ingestion.WithLogger(d.logger),
	}
	if o.scratchDir != "" {
		pipelineOpts = append(pipelineOpts, ingestion.WithScratchDir(o.scratchDir))
	}
	searchOpts := []search.Option{search.WithLogger(d.logger)}
	answerOpts := []answer.Option{
		answer.WithInstitution(o.institution),
		answer.WithDefaultK(o.defaultK),
		answer.WithLogger(d.logger),
	}
	monitors := o.monitors
	if o.metrics != nil {
		monitors = append(monitors, o.metrics.IngestionMonitor())
		searchOpts = append(searchOpts, search.WithMonitor(o.metrics.SearchMonitor()))
		answerOpts = append(answerOpts, answer.WithMonitor(o.metrics.AnswerMonitor()))
	}
	if len(monitors) > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithMonitor(ingestion.Fanout(monitors...)))
	}

	if d.ingestion, err = ingestion.NewPipeline(d.fragments, d.extractor, d.writer, d.registry, pipelineOpts...); err != nil {
		return err
	}
	if d.retriever, err = search.NewRetriever(d.fragments, d.manifests, d.provider.Embedder(), d.registry, searchOpts...); err != nil {
		return err
	}
	if d.answers, err = answer.NewPipeline(d.provider, d.retriever, d.conversations, answerOpts...); err != nil {
		return err
	}
	return nil
}

// checkManifest warns when the index was built with another embedding model.
func (d *Docent) checkManifest(ctx context.Context, model string) error {
	manifest, err := d.manifests.LoadManifest(ctx)
	if err != nil || manifest == nil {
		return err
	}
	if manifest.EmbeddingModel != model {
		d.logger.Warn("index was built with a different embedding model, run reembed",
			"index_model", manifest.EmbeddingModel, "configured_model", model)
	}
	return nil
}

func (d *Docent) seedRegistry(ctx context.Context) error {
	sources, err := d.fragments.Sources(ctx)
	if err != nil {
		return err
	}
	for _, s := range sources {
		d.registry.Register(s.Source)
	}
	if len(sources) > 0 {
		d.logger.Info("registered indexed documents as pending", "documents", len(sources))
	}
	return nil
}

// Close releases every component. It is safe on a partially opened
// Docent and may be called more than once.
func (d *Docent) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.close()
	})
	return d.closeErr
}

func (d *Docent) close() error {
	if d.ingestion != nil {
		d.ingestion.Release()
	}
	if d.writer != nil {
		d.writer.Release()
	}
	if d.provider != nil {
		if err := d.provider.Close(); err != nil {
			d.logger.Error("error closing AI provider", "err", err)
		}
	}
	if d.fragments != nil {
		if err := d.fragments.Close(); err != nil {
			d.logger.Error("error closing fragment repository", "err", err)
			d.backend.Close()
			return err
		}
	}
	if d.backend != nil {
		if err := d.backend.Close(); err != nil {
			d.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

// Dir returns the index directory.
func (d *Docent) Dir() string { return d.dir }

// Registry returns the document approval registry.
func (d *Docent) Registry() *approval.Registry { return d.registry }

// Ingestion returns the ingestion pipeline.
func (d *Docent) Ingestion() *ingestion.Pipeline { return d.ingestion }

// Answers returns the answer pipeline.
func (d *Docent) Answers() *answer.Pipeline { return d.answers }

// Retriever returns the fragment retriever.
func (d *Docent) Retriever() *search.Retriever { return d.retriever }

// FragmentRepository returns the fragment repository.
func (d *Docent) FragmentRepository() storage.FragmentRepository { return d.fragments }

// ManifestRepository returns the index manifest repository.
func (d *Docent) ManifestRepository() storage.ManifestRepository { return d.manifests }

// Provider returns the AI provider.
func (d *Docent) Provider() ai.AIProvider { return d.provider }

// Ingest indexes a document synchronously.
func (d *Docent) Ingest(ctx context.Context, name string, content io.Reader) (*ingestion.Result, error) {
	return d.ingestion.Ingest(ctx, name, content)
}

// Submit indexes a document in the background and returns the job id.
func (d *Docent) Submit(name string, content []byte) (string, error) {
	return d.ingestion.Submit(name, content)
}

// Job returns a background ingestion's status.
func (d *Docent) Job(id string) (ingestion.Job, error) {
	return d.ingestion.Jobs().Get(id)
}

// Approve makes a document visible to students.
func (d *Docent) Approve(name string) error {
	if err := d.registry.Approve(name); err != nil {
		return err
	}
	d.logger.Info("approved document", "document", name)
	return nil
}

// Delete removes a document from the index and the registry.
func (d *Docent) Delete(ctx context.Context, name string) (int, error) {
	return d.ingestion.Delete(ctx, name)
}

// Documents lists every known document with its state and fragment count,
// sorted by key.
func (d *Docent) Documents(ctx context.Context) ([]core.Document, error) {
	sources, err := d.fragments.Sources(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(sources))
	for _, s := range sources {
		counts[s.Source] = s.Fragments
	}

	states := d.registry.Snapshot()
	for key := range counts {
		if _, ok := states[key]; !ok {
			states[key] = core.StatePending
		}
	}

	docs := make([]core.Document, 0, len(states))
	for key, state := range states {
		docs = append(docs, core.Document{Key: key, State: state, Fragments: counts[key]})
	}
	slices.SortFunc(docs, func(a, b core.Document) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return docs, nil
}

// Answer answers one question.
func (d *Docent) Answer(ctx context.Context, req answer.Request) (*answer.Response, error) {
	return d.answers.Answer(ctx, req)
}

// Stream answers one question as a sequence of events.
func (d *Docent) Stream(ctx context.Context, req answer.Request) (<-chan answer.Event, error) {
	return d.answers.Stream(ctx, req)
}

// Retrieve runs a bare similarity search.
func (d *Docent) Retrieve(ctx context.Context, query string, k int, approvedOnly bool) ([]*core.SearchResult, error) {
	return d.retriever.Retrieve(ctx, query, k, search.RetrieveOptions{ApprovedOnly: approvedOnly})
}

// Health summarizes the state of the index.
type Health struct {
	IndexLoaded bool
	Documents   int
	Fragments   int
	Strategies  []string
}

// Health reports whether the index exists and what it holds.
func (d *Docent) Health(ctx context.Context) (*Health, error) {
	ready, err := d.retriever.Ready(ctx)
	if err != nil {
		return nil, err
	}
	count, err := d.fragments.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Health{
		IndexLoaded: ready,
		Documents:   len(d.registry.Keys()),
		Fragments:   count,
		Strategies:  d.extractor.Strategies(),
	}, nil
}
