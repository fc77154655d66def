package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Approvals reports whether a document is visible to end users.
type Approvals interface {
	IsApproved(key string) bool
}

// RetrieveOptions controls a single retrieval.
type RetrieveOptions struct {
	// ApprovedOnly drops fragments of documents that are not approved.
	ApprovedOnly bool

	// Monitor observes this call, overriding the retriever's monitor.
	Monitor Monitor
}

// Retriever finds the fragments most similar to a query.
type Retriever struct {
	fragments     storage.FragmentRepository
	manifests     storage.ManifestRepository
	embedder      ai.Embedder
	approvals     Approvals
	monitor       Monitor
	minSimilarity float32
	logger        *slog.Logger
	ready         atomic.Bool
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMonitor sets the default monitor for every retrieval.
func WithMonitor(monitor Monitor) Option {
	return func(r *Retriever) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// WithMinSimilarity drops fragments scoring below threshold.
// By default every fragment is ranked.
func WithMinSimilarity(threshold float32) Option {
	return func(r *Retriever) error {
		r.minSimilarity = threshold
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	fragments storage.FragmentRepository,
	manifests storage.ManifestRepository,
	embedder ai.Embedder,
	approvals Approvals,
	opts ...Option,
) (*Retriever, error) {
	if fragments == nil {
		return nil, ErrRepositoryRequired
	}
	if manifests == nil {
		return nil, ErrManifestRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if approvals == nil {
		return nil, ErrApprovalsRequired
	}

	r := &Retriever{
		fragments:     fragments,
		manifests:     manifests,
		embedder:      embedder,
		approvals:     approvals,
		monitor:       &noopMonitor{},
		minSimilarity: float32(math.Inf(-1)),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// Ready reports whether the index has been initialized.
func (r *Retriever) Ready(ctx context.Context) (bool, error) {
	if r.ready.Load() {
		return true, nil
	}
	manifest, err := r.manifests.LoadManifest(ctx)
	if err != nil {
		return false, err
	}
	if manifest == nil {
		return false, nil
	}
	r.ready.Store(true)
	return true, nil
}

// Retrieve returns up to k fragments ranked by similarity to query.
// It fails with core.ErrIndexUnavailable before anything was ingested.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, opts RetrieveOptions) ([]*core.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	ready, err := r.Ready(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, core.ErrIndexUnavailable
	}

	monitor := opts.Monitor
	if monitor == nil {
		monitor = r.monitor
	}
	start := time.Now()
	monitor.Start(query, k)

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	embedding = core.NormalizeVector(embedding)
	monitor.AfterEmbedding(len(embedding))

	ranked, err := r.fragments.FindSimilar(ctx, embedding, r.minSimilarity, k)
	if err != nil {
		r.logger.Error("error querying for similar fragments", "err", err)
		return nil, err
	}
	monitor.AfterRanking(ranked)

	results := ranked
	if opts.ApprovedOnly {
		results = make([]*core.SearchResult, 0, len(ranked))
		for _, result := range ranked {
			if !r.approvals.IsApproved(result.Fragment.Source) {
				monitor.Filtered(result)
				continue
			}
			results = append(results, result)
		}
	}

	elapsed := time.Since(start)
	monitor.Finish(results, elapsed)
	r.logger.Debug("retrieved fragments", "k", k, "ranked", len(ranked), "returned", len(results), "elapsed", elapsed)

	return results, nil
}
