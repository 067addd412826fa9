// Package schema holds the immutable action schema registry: the
// parameter contract, consensus rules, and priority for every action
// kind. The registry is built once at process start and shared by
// reference with the validator, the consensus engine, and the routers.
package schema

import (
	"fmt"
	"sort"

	"quorum/internal/domain"
)

// Registry is the lookup table of action schemas. All lookups are O(1)
// map reads with no side effects; the registry is never mutated after
// construction.
type Registry struct {
	byKind map[domain.ActionKind]*domain.ActionSchema
}

// NewRegistry builds the full action catalog.
func NewRegistry() *Registry {
	r := &Registry{byKind: make(map[domain.ActionKind]*domain.ActionSchema, len(catalog))}
	for i := range catalog {
		s := &catalog[i]
		r.byKind[s.Kind] = s
	}
	return r
}

// Get returns the schema for kind, or ErrUnknownAction.
func (r *Registry) Get(kind domain.ActionKind) (*domain.ActionSchema, error) {
	s, ok := r.byKind[kind]
	if !ok {
		return nil, domain.NewDomainError("schema.Get", domain.ErrUnknownAction, string(kind))
	}
	return s, nil
}

// List returns all action kinds ordered by ascending priority
// (most conservative first).
func (r *Registry) List() []domain.ActionKind {
	kinds := make([]domain.ActionKind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return r.byKind[kinds[i]].Priority < r.byKind[kinds[j]].Priority
	})
	return kinds
}

// Priority returns the unique priority of kind, or ErrUnknownAction.
func (r *Registry) Priority(kind domain.ActionKind) (int, error) {
	s, ok := r.byKind[kind]
	if !ok {
		return 0, domain.NewDomainError("schema.Priority", domain.ErrUnknownAction, string(kind))
	}
	return s.Priority, nil
}

// WaitRequired reports whether kind warrants a wait before the agent's
// next step. The kind must already have been validated; an unknown kind
// is a programming error and panics.
func (r *Registry) WaitRequired(kind domain.ActionKind) bool {
	s, ok := r.byKind[kind]
	if !ok {
		panic(fmt.Sprintf("schema.WaitRequired: unknown action kind %q", kind))
	}
	return s.WaitRequired
}

// Rule returns the consensus rule declared for (kind, param).
// A parameter named "wait" always resolves to the wait rule regardless
// of the owning kind's declaration; this cross-cutting override prevents
// a kind-local rule from silently reinterpreting wait semantics.
func (r *Registry) Rule(kind domain.ActionKind, param string) (domain.ConsensusRule, error) {
	if param == "wait" {
		return domain.WaitParameter(), nil
	}
	s, ok := r.byKind[kind]
	if !ok {
		return domain.ConsensusRule{}, domain.NewDomainError("schema.Rule", domain.ErrUnknownAction, string(kind))
	}
	rule, ok := s.Rules[param]
	if !ok {
		return domain.ConsensusRule{}, domain.NewDomainError("schema.Rule", domain.ErrUnknownParam,
			fmt.Sprintf("%s.%s", kind, param))
	}
	return rule, nil
}
