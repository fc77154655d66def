package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Fragment IDs come from a database sequence, so ordering by ID is insertion order.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Metadata keys attached to every fragment.
const (
	MetaSource  = "source"
	MetaChunkID = "chunk_id"
)

// Fragment is a chunk of a document's text stored as an independently retrievable unit.
// Fragments are immutable once written; the only mutation is deletion with their document.
type Fragment struct {
	Id          ID
	Source      string            // Key of the owning document
	ChunkID     int               // Ordinal within the document, contiguous from 0
	Text        string            // Trimmed chunk text
	ContentHash ID                // IDFromContent(Text)
	Vector      []float32         // Unit-length embedding
	Metadata    map[string]string // source, chunk_id and caller supplied values
	InsertedAt  time.Time
}

// NewFragment builds a fragment for the given document position.
// The source and chunk_id metadata are always present.
func NewFragment(source string, chunkID int, text string, extra map[string]string) *Fragment {
	metadata := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		metadata[k] = v
	}
	metadata[MetaSource] = source
	metadata[MetaChunkID] = strconv.Itoa(chunkID)
	return &Fragment{
		Source:      source,
		ChunkID:     chunkID,
		Text:        text,
		ContentHash: IDFromContent(text),
		Metadata:    metadata,
	}
}

// ApprovalState is the visibility of a document to end users.
type ApprovalState int

const (
	// StatePending documents are indexed but hidden from end users.
	StatePending ApprovalState = iota + 1
	// StateApproved documents are visible to everyone.
	StateApproved
)

// String returns the label used by the document listing.
func (s ApprovalState) String() string {
	switch s {
	case StateApproved:
		return "verified"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Document describes an ingested document as seen by administrators.
type Document struct {
	Key       string
	State     ApprovalState
	Fragments int
}

// SourceStats summarizes the fragments stored for one document key.
type SourceStats struct {
	Source    string
	Fragments int
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleStudent is the end user asking questions.
	RoleStudent Role = iota + 1
	// RoleAssistant is the generated answer.
	RoleAssistant
)

// Label returns the transcript label for the role.
func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// Turn is a single message in a conversation session.
type Turn struct {
	Role    Role
	Content string
}

// SearchResult represents a retrieved fragment with its similarity score.
type SearchResult struct {
	Fragment *Fragment
	Score    float32
}

// IndexManifest binds a vector index to the embedding function that populated it.
// Its presence marks the index as initialized.
type IndexManifest struct {
	EmbeddingModel string
	Dimensions     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
