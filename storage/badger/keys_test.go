package badger

import (
	"bytes"
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
)

func TestSourceKeyRoundTrip(t *testing.T) {
	key := makeSourceKey("fee structure.pdf", core.ID(42))

	source, id, ok := parseSourceKey(key)
	assert.True(t, ok)
	assert.Equal(t, "fee structure.pdf", source)
	assert.Equal(t, core.ID(42), id)
	assert.True(t, bytes.HasPrefix(key, makeSourcePrefix("fee structure.pdf")))
	assert.False(t, bytes.HasPrefix(key, makeSourcePrefix("fee")))
}

func TestParseSourceKey_Malformed(t *testing.T) {
	_, _, ok := parseSourceKey([]byte("fsrc:x"))
	assert.False(t, ok)
}

func TestFragmentKeyOrdering(t *testing.T) {
	assert.Equal(t, -1, bytes.Compare(makeFragmentKey(255), makeFragmentKey(256)))
}
