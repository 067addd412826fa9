package embedding

import (
	"container/list"
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"quorum/internal/domain"
)

// lruEntry pairs a hash key with its embedding vector in the LRU list.
type lruEntry struct {
	key uint64
	vec []float32
}

// CachedEmbedder wraps a domain.EmbeddingProvider with a per-text LRU
// cache. Consensus merges embed every agent's proposal in one batch and
// agents frequently propose identical or recurring text, so each text in
// a batch is looked up individually and only the misses reach the inner
// provider.
type CachedEmbedder struct {
	inner   domain.EmbeddingProvider
	maxSize int

	mu    sync.Mutex
	cache map[uint64]*list.Element // hash → list element
	order *list.List               // most-recently-used at back
}

// NewCachedEmbedder wraps inner with an LRU embedding cache of maxSize
// entries. If maxSize <= 0, the inner provider is returned uncached.
func NewCachedEmbedder(inner domain.EmbeddingProvider, maxSize int) domain.EmbeddingProvider {
	if maxSize <= 0 {
		return inner
	}
	return &CachedEmbedder{
		inner:   inner,
		maxSize: maxSize,
		cache:   make(map[uint64]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Embed implements domain.EmbeddingProvider.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	c.mu.Lock()
	for i, text := range texts {
		if elem, ok := c.cache[hashText(text)]; ok {
			c.order.MoveToBack(elem)
			vectors[i] = elem.Value.(*lruEntry).vec
		} else {
			missTexts = append(missTexts, text)
			missIdx = append(missIdx, i)
		}
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fetched, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrEmbeddingFailed, len(fetched), len(missTexts))
	}

	c.mu.Lock()
	for j, vec := range fetched {
		vectors[missIdx[j]] = vec
		c.put(hashText(missTexts[j]), vec)
	}
	c.mu.Unlock()

	return vectors, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Name implements domain.EmbeddingProvider.
func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// Len returns the current number of cached vectors.
func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// hashText returns an FNV-1a hash of the input text.
func hashText(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// put inserts a key/value pair, evicting the LRU entry at capacity.
// Caller must hold c.mu.
func (c *CachedEmbedder) put(key uint64, vec []float32) {
	if elem, exists := c.cache[key]; exists {
		c.order.MoveToBack(elem)
		elem.Value.(*lruEntry).vec = vec
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.cache, oldest.Value.(*lruEntry).key)
	}

	elem := c.order.PushBack(&lruEntry{key: key, vec: vec})
	c.cache[key] = elem
}

var _ domain.EmbeddingProvider = (*CachedEmbedder)(nil)
