package answer

import (
	"fmt"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"github.com/poiesic/docent/ai"
)

// EngineCache memoizes query engines by strategy and k.
type EngineCache struct {
	engines   *cache.Cache
	retriever Retriever
	generator ai.Generator
	built     atomic.Int64
}

// NewEngineCache creates an empty cache whose engines share retriever and generator.
func NewEngineCache(retriever Retriever, generator ai.Generator) *EngineCache {
	return &EngineCache{
		engines:   cache.New(cache.NoExpiration, 0),
		retriever: retriever,
		generator: generator,
	}
}

func engineKey(strategy Strategy, k int) string {
	return fmt.Sprintf("%s::k=%d", strategy, k)
}

// GetOrCreate returns the engine for k and strategy, building it on first use.
// Concurrent first use may build twice; the last write wins.
func (c *EngineCache) GetOrCreate(k int, strategy string) (*QueryEngine, error) {
	parsed, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	key := engineKey(parsed, k)
	if v, ok := c.engines.Get(key); ok {
		return v.(*QueryEngine), nil
	}

	engine := &QueryEngine{
		k:         k,
		strategy:  parsed,
		retriever: c.retriever,
		generator: c.generator,
	}
	c.built.Add(1)
	c.engines.Set(key, engine, cache.NoExpiration)
	return engine, nil
}

// Len returns the number of cached engines.
func (c *EngineCache) Len() int {
	return c.engines.ItemCount()
}

// Built returns how many engines have been constructed.
func (c *EngineCache) Built() int {
	return int(c.built.Load())
}
