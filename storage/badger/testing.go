package badger

// MemoryIndex bundles in-memory repositories for tests.
type MemoryIndex struct {
	Backend   *Backend
	Fragments *FragmentRepository
	Manifest  *ManifestRepository
}

// NewMemoryIndex creates in-memory fragment and manifest repositories for testing.
// Caller must Close the index when done.
func NewMemoryIndex() (*MemoryIndex, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	fragments, err := NewFragmentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &MemoryIndex{
		Backend:   backend,
		Fragments: fragments,
		Manifest:  NewManifestRepository(backend),
	}, nil
}

// Close releases the repositories and the backend.
func (m *MemoryIndex) Close() error {
	if err := m.Fragments.Close(); err != nil {
		m.Backend.Close()
		return err
	}
	return m.Backend.Close()
}
