package domain

import (
	"context"
	"sync"
)

// EmbeddingProvider is the interface for text embedding backends.
type EmbeddingProvider interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int
	// Name returns the provider's identifier (e.g., "openai").
	Name() string
}

// CostAccumulator tallies embedding spend across consensus merges. A nil
// accumulator is valid everywhere and disables accounting without
// changing behavior.
type CostAccumulator struct {
	mu    sync.Mutex
	calls int
	texts int
}

// AddCall records one provider round-trip embedding n texts.
func (c *CostAccumulator) AddCall(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.calls++
	c.texts += n
	c.mu.Unlock()
}

// Calls returns the number of provider round-trips recorded.
func (c *CostAccumulator) Calls() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Texts returns the total number of texts embedded.
func (c *CostAccumulator) Texts() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts
}
