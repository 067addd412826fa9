package consensus

import (
	"context"
	"fmt"
	"math"

	"quorum/internal/domain"
)

// CosineSimilarity computes dot(a,b) / (|a| * |b|) for two equal-length
// vectors. Mismatched lengths are an error; a zero-magnitude vector is
// defined to have similarity 0.0 rather than propagating NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDomainError("consensus.CosineSimilarity", domain.ErrEmbeddingLength,
			fmt.Sprintf("%d vs %d", len(a), len(b)))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// semantic merges free-text values by embedding-vector similarity.
//
// When every input string is byte-identical the shared string is
// returned without any provider call; true agreement is the common
// case and must not cost an embedding round-trip. Otherwise each
// distinct string is embedded once, and consensus is the value whose
// average pairwise similarity to all others meets the threshold,
// tie-broken by highest average.
func (m *Merger) semantic(ctx context.Context, values []any, threshold float64, opts Options) (any, error) {
	strs := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, domain.NewDomainError("consensus.semantic", domain.ErrNoConsensus,
				fmt.Sprintf("value of type %T is not a string", v))
		}
		strs[i] = s
	}

	// Short-circuit: all identical, no embedding cost.
	identical := true
	for _, s := range strs[1:] {
		if s != strs[0] {
			identical = false
			break
		}
	}
	if identical {
		return strs[0], nil
	}

	if m.embedder == nil {
		return nil, domain.NewDomainError("consensus.semantic", domain.ErrEmbeddingFailed,
			"no embedding provider configured")
	}

	// Embed each distinct string once; duplicates share a vector.
	distinct := make([]string, 0, len(strs))
	index := make(map[string]int, len(strs))
	for _, s := range strs {
		if _, ok := index[s]; ok {
			continue
		}
		index[s] = len(distinct)
		distinct = append(distinct, s)
	}

	vecs, err := m.embedder.Embed(ctx, distinct)
	if err != nil {
		return nil, domain.WrapOp("consensus.semantic", fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err))
	}
	if len(vecs) != len(distinct) {
		return nil, domain.NewDomainError("consensus.semantic", domain.ErrEmbeddingFailed,
			fmt.Sprintf("provider returned %d vectors for %d texts", len(vecs), len(distinct)))
	}
	opts.Cost.AddCall(len(distinct))

	// Average pairwise similarity of each value against all the others,
	// duplicates included: a string proposed twice counts twice.
	best := -1
	bestAvg := math.Inf(-1)
	for i := range strs {
		var sum float64
		for j := range strs {
			if i == j {
				continue
			}
			sim, err := CosineSimilarity(vecs[index[strs[i]]], vecs[index[strs[j]]])
			if err != nil {
				return nil, err
			}
			sum += sim
		}
		avg := sum / float64(len(strs)-1)
		if avg > bestAvg {
			bestAvg = avg
			best = i
		}
	}

	if bestAvg < threshold {
		return nil, domain.NewDomainError("consensus.semantic", domain.ErrNoConsensus,
			fmt.Sprintf("best average similarity %.3f below threshold %.3f", bestAvg, threshold))
	}

	m.logger.Debug("semantic consensus reached",
		"candidates", len(distinct),
		"avg_similarity", bestAvg,
		"threshold", threshold,
	)
	return strs[best], nil
}
