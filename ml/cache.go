package ml

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type vectorKey [21]float64

// InferenceCache memoizes probabilities per feature vector. Inference is
// deterministic so a hit is always equal to a fresh computation.
type InferenceCache struct {
	entries *lru.Cache[vectorKey, float64]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func NewInferenceCache(size int) (*InferenceCache, error) {
	entries, err := lru.New[vectorKey, float64](size)
	if err != nil {
		return nil, err
	}
	return &InferenceCache{entries: entries}, nil
}

func (c *InferenceCache) get(key vectorKey) (float64, bool) {
	p, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return p, ok
}

func (c *InferenceCache) add(key vectorKey, p float64) {
	c.entries.Add(key, p)
}

// Stats returns hit and miss counts since creation.
func (c *InferenceCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *InferenceCache) Len() int {
	return c.entries.Len()
}

func keyOf(values []float64) vectorKey {
	var k vectorKey
	copy(k[:], values)
	return k
}
