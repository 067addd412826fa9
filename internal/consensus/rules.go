// Package consensus implements the per-parameter merge engine that
// reconciles N independently sampled parameter values into one agreed
// value, or reports that no consensus exists. All rules are
// deterministic given the same inputs; only semantic similarity
// consults an external embedding provider.
package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"quorum/internal/domain"
	"quorum/internal/schema"
)

// Options tune one merge invocation.
type Options struct {
	// Cost, when non-nil, accumulates embedding spend across semantic
	// merges. A nil Cost disables accounting without changing behavior.
	Cost *domain.CostAccumulator
}

// Merger applies consensus rules. Pure rules need no state; the struct
// carries the schema registry for rule lookup and the embedding provider
// for semantic similarity.
type Merger struct {
	schemas  *schema.Registry
	embedder domain.EmbeddingProvider
	logger   *slog.Logger
}

// NewMerger creates a Merger. embedder may be nil if no schema uses
// semantic similarity; applying a semantic rule without one fails.
func NewMerger(schemas *schema.Registry, embedder domain.EmbeddingProvider, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{schemas: schemas, embedder: embedder, logger: logger}
}

// MergeParams looks up the consensus rule for (kind, param) and applies
// it to values. Unknown (kind, param) pairs fail with ErrUnknownParam
// rather than falling back to a default rule: silently misapplying a
// default strategy to an unscoped parameter is worse than rejecting it.
func (m *Merger) MergeParams(ctx context.Context, kind domain.ActionKind, param string, values []any, opts Options) (any, error) {
	rule, err := m.schemas.Rule(kind, param)
	if err != nil {
		return nil, err
	}
	return m.Apply(ctx, rule, values, opts)
}

// Apply runs a single consensus rule over values.
func (m *Merger) Apply(ctx context.Context, rule domain.ConsensusRule, values []any, opts Options) (any, error) {
	if len(values) == 0 {
		return nil, domain.ErrNoValues
	}

	switch rule.Kind {
	case domain.RuleExactMatch:
		return exactMatch(values)
	case domain.RuleModeSelection:
		return modeSelection(values)
	case domain.RuleUnionMerge:
		return unionMerge(values)
	case domain.RuleStructuralMerge:
		return structuralMerge(values)
	case domain.RulePercentile:
		return percentileMerge(values, float64(rule.P))
	case domain.RuleWaitParameter:
		return waitParameter(values)
	case domain.RuleFirstNonNil:
		return firstNonNil(values)
	case domain.RuleSemanticSimilarity:
		return m.semantic(ctx, values, rule.Threshold, opts)
	default:
		return nil, domain.NewDomainError("consensus.Apply", domain.ErrInvalidInput,
			fmt.Sprintf("unrecognized rule kind %d", rule.Kind))
	}
}

// canonicalKey renders a value into a deterministic comparison key.
// JSON marshaling sorts map keys and collapses numeric representations,
// so structurally identical values always share a key.
func canonicalKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Unmarshalable values (channels, funcs) never agree with anything.
		return fmt.Sprintf("!unmarshalable:%T:%p", v, &v)
	}
	return string(data)
}

// exactMatch requires all values to be structurally identical.
// Order-independent: any permutation of agreeing inputs agrees.
func exactMatch(values []any) (any, error) {
	first := canonicalKey(values[0])
	for _, v := range values[1:] {
		if canonicalKey(v) != first {
			return nil, domain.NewDomainError("consensus.exactMatch", domain.ErrNoConsensus,
				"values differ")
		}
	}
	return values[0], nil
}

// modeSelection returns the most frequent value; ties break toward the
// earliest first occurrence, making the result stable and deterministic.
func modeSelection(values []any) (any, error) {
	counts := make(map[string]int, len(values))
	firstIdx := make(map[string]int, len(values))
	for i, v := range values {
		k := canonicalKey(v)
		counts[k]++
		if _, seen := firstIdx[k]; !seen {
			firstIdx[k] = i
		}
	}

	bestKey := canonicalKey(values[0])
	for k, n := range counts {
		switch {
		case n > counts[bestKey]:
			bestKey = k
		case n == counts[bestKey] && firstIdx[k] < firstIdx[bestKey]:
			bestKey = k
		}
	}
	return values[firstIdx[bestKey]], nil
}

// unionMerge concatenates all values as lists and returns the
// deduplicated union, preserving first-seen order. A non-list value is
// treated as a one-element list.
func unionMerge(values []any) (any, error) {
	var out []any
	seen := make(map[string]bool)
	for _, v := range values {
		elems, ok := v.([]any)
		if !ok {
			elems = []any{v}
		}
		for _, e := range elems {
			k := canonicalKey(e)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, e)
		}
	}
	return out, nil
}

// structuralMerge deep-merges all values as maps, left to right. Keys in
// later maps override earlier ones; nested maps merge recursively.
func structuralMerge(values []any) (any, error) {
	merged := make(map[string]any)
	for _, v := range values {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, domain.NewDomainError("consensus.structuralMerge", domain.ErrNoConsensus,
				fmt.Sprintf("value of type %T is not a map", v))
		}
		deepMerge(merged, m)
	}
	return merged, nil
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				deepMerge(existing, sub)
				continue
			}
			// Copy so later merges into dst never mutate the input.
			cp := make(map[string]any, len(sub))
			deepMerge(cp, sub)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}

// firstNonNil returns the first non-nil value in input order.
func firstNonNil(values []any) (any, error) {
	for _, v := range values {
		if v != nil {
			return v, nil
		}
	}
	return nil, domain.NewDomainError("consensus.firstNonNil", domain.ErrNoConsensus,
		"all values are nil")
}
