package embedding

import (
	"context"
	"sync"
)

// Cache memoizes successful embeddings for the lifetime of one run, which
// both de-duplicates identical canonical texts and makes the provider
// deterministic within the run. Failures are not cached so a transient
// error on one record does not poison a later retry of the same text.
type Cache struct {
	inner Provider

	mu   sync.Mutex
	vecs map[string][]float32
}

func NewCache(inner Provider) *Cache {
	return &Cache{inner: inner, vecs: make(map[string][]float32)}
}

func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if vec, ok := c.vecs[text]; ok {
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.vecs[text] = vec
	c.mu.Unlock()
	return vec, nil
}
