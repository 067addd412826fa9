package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"quorum/internal/domain"
)

// RateLimitedEmbedder throttles provider calls so a burst of concurrent
// consensus merges cannot blow through the backend's request quota.
type RateLimitedEmbedder struct {
	inner   domain.EmbeddingProvider
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps inner, allowing rps requests per second
// with a burst of the same size. A non-positive rps returns the inner
// provider unthrottled.
func NewRateLimitedEmbedder(inner domain.EmbeddingProvider, rps float64) domain.EmbeddingProvider {
	if rps <= 0 {
		return inner
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed implements domain.EmbeddingProvider, blocking until the limiter
// grants a slot or ctx is done.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbeddingFailed, err)
	}
	return r.inner.Embed(ctx, texts)
}

// Dimensions implements domain.EmbeddingProvider.
func (r *RateLimitedEmbedder) Dimensions() int { return r.inner.Dimensions() }

// Name implements domain.EmbeddingProvider.
func (r *RateLimitedEmbedder) Name() string { return r.inner.Name() }

var _ domain.EmbeddingProvider = (*RateLimitedEmbedder)(nil)
