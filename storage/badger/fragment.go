package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// deleteBatchSize bounds the number of fragments removed per transaction.
// Each fragment costs two deletes.
const deleteBatchSize = 500

// FragmentRepository implements storage.FragmentRepository for BadgerDB.
type FragmentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.FragmentRepository = (*FragmentRepository)(nil)

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(backend *Backend) (*FragmentRepository, error) {
	idSeq, err := backend.GetSequence(fragmentIDSeq)
	if err != nil {
		return nil, err
	}

	return &FragmentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *FragmentRepository) Close() error {
	return r.idSeq.Release()
}

// FindSimilar delegates to the backend.
func (r *FragmentRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

func (r *FragmentRepository) nextID() (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		if nextID, err = r.idSeq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// AddFragments adds one or more fragments to storage in a single transaction.
func (r *FragmentRepository) AddFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	for _, fragment := range fragments {
		if err := core.ValidateFragment(fragment); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, fragment := range fragments {
			id, err := r.nextID()
			if err != nil {
				return err
			}
			fragment.Id = id
			fragment.InsertedAt = now

			if err := tx.Set(makeFragmentKey(fragment.Id), storage.MarshalFragment(fragment)); err != nil {
				return err
			}
			if err := tx.Set(makeSourceKey(fragment.Source, fragment.Id), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return fragments, nil
}

// GetFragment retrieves a single fragment by ID.
func (r *FragmentRepository) GetFragment(ctx context.Context, id core.ID) (*core.Fragment, error) {
	var result *core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readFragment(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetFragmentsBySource retrieves every fragment of a document ordered by ID.
func (r *FragmentRepository) GetFragmentsBySource(ctx context.Context, source string) ([]*core.Fragment, error) {
	var results []*core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := sourceIDs(tx, source)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fragment, err := readFragment(tx, id)
			if err != nil {
				return err
			}
			if fragment != nil {
				results = append(results, fragment)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteBySource removes every fragment of a document.
// Large documents are removed across several transactions; a failure part way
// leaves the remaining fragments in place for a retry.
func (r *FragmentRepository) DeleteBySource(ctx context.Context, source string) (int, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		ids, err = sourceIDs(tx, source)
		return err
	}, false)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(ids); start += deleteBatchSize {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		end := min(start+deleteBatchSize, len(ids))
		batch := ids[start:end]
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for _, id := range batch {
				if err := tx.Delete(makeFragmentKey(id)); err != nil {
					return err
				}
				if err := tx.Delete(makeSourceKey(source, id)); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return deleted, fmt.Errorf("deleting fragments of %s: %w", source, err)
		}
		deleted += len(batch)
	}

	if deleted > 0 {
		r.backend.logger.Debug("deleted fragments", "source", source, "count", deleted)
	}
	return deleted, nil
}

// Sources lists every document key with at least one fragment.
// Keys come back sorted because the index is ordered by source.
func (r *FragmentRepository) Sources(ctx context.Context) ([]core.SourceStats, error) {
	var results []core.SourceStats
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fragmentSourcePrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			source, _, ok := parseSourceKey(iter.Item().Key())
			if !ok {
				continue
			}
			if n := len(results); n > 0 && results[n-1].Source == source {
				results[n-1].Fragments++
				continue
			}
			results = append(results, core.SourceStats{Source: source, Fragments: 1})
		}
		return nil
	}, false)
	return results, err
}

// ListFragments returns up to limit fragments with ID > afterID, ordered by ID.
func (r *FragmentRepository) ListFragments(ctx context.Context, afterID core.ID, limit int) ([]*core.Fragment, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fragmentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeFragmentKey(afterID + 1)); iter.Valid() && len(results) < limit; iter.Next() {
			var fragment *core.Fragment
			err := iter.Item().Value(func(val []byte) error {
				var err error
				fragment, err = storage.UnmarshalFragment(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, fragment)
		}
		return nil
	}, false)
	return results, err
}

// UpdateVectors replaces the embeddings of existing fragments.
func (r *FragmentRepository) UpdateVectors(ctx context.Context, fragments ...*core.Fragment) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, fragment := range fragments {
			stored, err := readFragment(tx, fragment.Id)
			if err != nil {
				return err
			}
			if stored == nil {
				return fmt.Errorf("%w: fragment %d", storage.ErrNotFound, fragment.Id)
			}
			stored.Vector = fragment.Vector
			if err := tx.Set(makeFragmentKey(stored.Id), storage.MarshalFragment(stored)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Count returns the number of stored fragments.
func (r *FragmentRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fragmentPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readFragment reads a fragment inside a transaction.
// Returns nil, nil if the fragment doesn't exist.
func readFragment(tx *badger.Txn, id core.ID) (*core.Fragment, error) {
	item, err := tx.Get(makeFragmentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var fragment *core.Fragment
	err = item.Value(func(val []byte) error {
		var err error
		fragment, err = storage.UnmarshalFragment(val)
		return err
	})
	return fragment, err
}

// sourceIDs collects the IDs of every fragment of a document in ID order.
func sourceIDs(tx *badger.Txn, source string) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeSourcePrefix(source)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		_, id, ok := parseSourceKey(iter.Item().Key())
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
