package storage

import (
	"context"

	"github.com/poiesic/docent/core"
)

// FragmentRepository provides operations for managing document fragments.
// Implementations must be thread-safe and support concurrent access.
type FragmentRepository interface {
	// AddFragments adds one or more fragments to storage in a single transaction.
	// Generates new IDs from a sequence and sets InsertedAt.
	// Either every fragment is stored or none are.
	// Returns the fragments with IDs and timestamps populated.
	AddFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error)

	// FindSimilar finds fragments similar to the given vector.
	// Returns fragments with similarity >= minSimilarity, up to limit results.
	// Results are ordered by score descending, ties broken by ascending ID.
	// A limit <= 0 returns every match.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// GetFragment retrieves a single fragment by ID.
	// Returns ErrNotFound if the fragment doesn't exist.
	GetFragment(ctx context.Context, id core.ID) (*core.Fragment, error)

	// GetFragmentsBySource retrieves every fragment of a document ordered by ID.
	GetFragmentsBySource(ctx context.Context, source string) ([]*core.Fragment, error)

	// DeleteBySource removes every fragment of a document.
	// Returns the number of fragments removed. Unknown sources remove nothing.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Sources lists every document key with at least one fragment, sorted by key.
	Sources(ctx context.Context) ([]core.SourceStats, error)

	// ListFragments returns up to limit fragments with ID > afterID, ordered by ID.
	ListFragments(ctx context.Context, afterID core.ID, limit int) ([]*core.Fragment, error)

	// UpdateVectors replaces the embeddings of existing fragments.
	// Returns ErrNotFound if any fragment doesn't exist.
	UpdateVectors(ctx context.Context, fragments ...*core.Fragment) error

	// Count returns the number of stored fragments.
	Count(ctx context.Context) (int, error)

	// Close releases the ID sequence.
	Close() error
}

// ManifestRepository persists the index manifest.
type ManifestRepository interface {
	// SaveManifest persists the manifest, updating UpdatedAt.
	SaveManifest(ctx context.Context, manifest *core.IndexManifest) error

	// LoadManifest retrieves the manifest.
	// Returns nil, nil if the index has never been initialized.
	LoadManifest(ctx context.Context) (*core.IndexManifest, error)
}
