package badger

import (
	"encoding/binary"

	"github.com/poiesic/docent/core"
)

// Key prefixes for different data types
const (
	fragmentPrefix       = "frag:"
	fragmentSourcePrefix = "fsrc:"
	fragmentIDSeq        = "fragseq"
	manifestKey          = "manifest"
)

// sourceTerminator separates the document key from the fragment ID in index keys.
// Document keys cannot contain NUL.
const sourceTerminator = 0x00

// makeFragmentKey generates a key for a fragment by ID.
// IDs are written BigEndian so iteration order is ID order.
func makeFragmentKey(id core.ID) []byte {
	buf := make([]byte, len(fragmentPrefix)+8)
	offset := copy(buf, fragmentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeSourceKey generates a composite key for the per-document index.
// Format: prefix:source\x00id
func makeSourceKey(source string, id core.ID) []byte {
	prefix := makeSourcePrefix(source)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeSourcePrefix generates the partial key matching every fragment of a document.
func makeSourcePrefix(source string) []byte {
	buf := make([]byte, 0, len(fragmentSourcePrefix)+len(source)+1)
	buf = append(buf, fragmentSourcePrefix...)
	buf = append(buf, source...)
	return append(buf, sourceTerminator)
}

// parseSourceKey splits a per-document index key into its source and ID.
func parseSourceKey(key []byte) (string, core.ID, bool) {
	minLen := len(fragmentSourcePrefix) + 1 + 8
	if len(key) < minLen {
		return "", 0, false
	}
	idStart := len(key) - 8
	if key[idStart-1] != sourceTerminator {
		return "", 0, false
	}
	source := string(key[len(fragmentSourcePrefix) : idStart-1])
	id := core.ID(binary.BigEndian.Uint64(key[idStart:]))
	return source, id, true
}
