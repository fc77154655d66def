package ingestion

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunking defaults, all measured in runes.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100

	smallFileThreshold   = 2000
	forceSplitMinimum    = 1000
	forceSplitSize       = 400
	forceSplitOverlap    = 50
	smallFileMinPiece    = 30
	minFragmentLength    = 50
	largeDocumentLength  = 10000
	minimumFragmentCount = 3
)

var (
	coarseSeparators     = []string{"\n\n", "\n", ". ", "! ", "? ", " "}
	fineSeparators       = []string{"\n\n", "\n", ". ", "! ", "? ", ", ", " "}
	forceSplitSeparators = []string{"\n", ". ", " "}
)

// Chunker splits normalized document text into fragments.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given target size and overlap.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap > size {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunkConfig, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured chunk overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered, trimmed, non-empty fragments.
//
// Short texts prefer their own paragraph breaks and are force-split only
// when they have none. Long texts go through the recursive cascade, and a
// very long text that still yields too few fragments is re-split finer.
func (c *Chunker) Chunk(text string) []string {
	length := utf8.RuneCountInString(text)

	if length < smallFileThreshold {
		if paragraphs := splitParagraphs(text); len(paragraphs) >= 2 {
			return paragraphs
		}
		if length > forceSplitMinimum {
			if pieces := cascade(text, forceSplitSize, forceSplitOverlap, forceSplitSeparators, smallFileMinPiece); len(pieces) > 0 {
				return pieces
			}
		}
		return whole(text)
	}

	chunks := cascade(text, c.size, c.overlap, coarseSeparators, minFragmentLength)
	if len(chunks) < minimumFragmentCount && length > largeDocumentLength {
		chunks = cascade(text, c.size/2, c.overlap/2, fineSeparators, smallFileMinPiece)
	}
	if len(chunks) == 0 {
		return whole(text)
	}
	return chunks
}

// whole returns the trimmed text as a single fragment, or nothing when blank.
func whole(text string) []string {
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return []string{trimmed}
	}
	return nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// cascade runs the recursive character splitter and keeps pieces longer than minLength.
func cascade(text string, size, overlap int, separators []string, minLength int) []string {
	if size < 1 {
		size = 1
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(slices.Clone(separators)),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil
	}

	chunks := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) > minLength {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}
