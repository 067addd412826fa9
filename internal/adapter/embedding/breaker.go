package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"quorum/internal/domain"
)

// BreakerEmbedder wraps a provider with a circuit breaker so a dead
// embedding backend fails consensus merges fast instead of stalling
// every Router at its consensus-gathering deadline.
type BreakerEmbedder struct {
	inner   domain.EmbeddingProvider
	breaker *gobreaker.CircuitBreaker[[][]float32]
}

// NewBreakerEmbedder wraps inner with a circuit breaker. The breaker
// opens after five consecutive failures and probes again after 30
// seconds.
func NewBreakerEmbedder(inner domain.EmbeddingProvider, logger *slog.Logger) *BreakerEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:    "embedding-" + inner.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerEmbedder{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[][]float32](settings),
	}
}

// Embed implements domain.EmbeddingProvider. An open breaker surfaces
// as a transient embedding failure.
func (b *BreakerEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := b.breaker.Execute(func() ([][]float32, error) {
		return b.inner.Embed(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w: circuit open", domain.ErrEmbeddingFailed, domain.ErrTransient)
		}
		return nil, err
	}
	return vectors, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (b *BreakerEmbedder) Dimensions() int { return b.inner.Dimensions() }

// Name implements domain.EmbeddingProvider.
func (b *BreakerEmbedder) Name() string { return b.inner.Name() }

var _ domain.EmbeddingProvider = (*BreakerEmbedder)(nil)
