package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorum/internal/domain"
)

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	s, err := r.Get(domain.ActionExecuteShell)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionExecuteShell, s.Kind)
	assert.Equal(t, [][]string{{"command", "check_id"}}, s.XorGroups)

	_, err = r.Get(domain.ActionKind("rm_rf_everything"))
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestRegistryPrioritiesUnique(t *testing.T) {
	r := NewRegistry()

	seen := make(map[int]domain.ActionKind)
	for _, kind := range r.List() {
		p, err := r.Priority(kind)
		require.NoError(t, err)
		if prev, dup := seen[p]; dup {
			t.Fatalf("priority %d shared by %s and %s", p, prev, kind)
		}
		seen[p] = kind
	}
	assert.Len(t, seen, len(r.List()))
}

func TestRegistryListOrderedByPriority(t *testing.T) {
	r := NewRegistry()

	kinds := r.List()
	require.NotEmpty(t, kinds)
	assert.Equal(t, domain.ActionOrient, kinds[0], "orient is the most conservative kind")

	last := -1
	for _, kind := range kinds {
		p, err := r.Priority(kind)
		require.NoError(t, err)
		assert.Greater(t, p, last)
		last = p
	}
}

// Every declared parameter must have both a type and a consensus rule.
// A parameter missing either would silently bypass validation or merge.
func TestRegistryCompleteness(t *testing.T) {
	r := NewRegistry()

	for _, kind := range r.List() {
		s, err := r.Get(kind)
		require.NoError(t, err)

		params := append(append([]string{}, s.Required...), s.Optional...)
		require.NotEmpty(t, params, "kind %s declares no parameters", kind)

		for _, p := range params {
			_, ok := s.Types[p]
			assert.True(t, ok, "%s.%s has no type spec", kind, p)
			_, ok = s.Rules[p]
			assert.True(t, ok, "%s.%s has no consensus rule", kind, p)
		}

		// No stray entries either: every typed/ruled param is declared.
		for p := range s.Types {
			assert.True(t, s.HasParam(p), "%s.%s typed but not declared", kind, p)
		}
		for p := range s.Rules {
			assert.True(t, s.HasParam(p), "%s.%s ruled but not declared", kind, p)
		}
	}
}

func TestWaitRequired(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.WaitRequired(domain.ActionOrient))
	assert.True(t, r.WaitRequired(domain.ActionExecuteShell))

	assert.Panics(t, func() { r.WaitRequired(domain.ActionKind("bogus")) })
}

func TestRuleLookup(t *testing.T) {
	r := NewRegistry()

	rule, err := r.Rule(domain.ActionExecuteShell, "command")
	require.NoError(t, err)
	assert.Equal(t, domain.RuleExactMatch, rule.Kind)

	_, err = r.Rule(domain.ActionExecuteShell, "no_such_param")
	assert.ErrorIs(t, err, domain.ErrUnknownParam)

	_, err = r.Rule(domain.ActionKind("bogus"), "command")
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

// The wait parameter resolves to the wait rule no matter which kind owns
// it, even when the kind declares something else.
func TestRuleWaitOverride(t *testing.T) {
	r := NewRegistry()

	rule, err := r.Rule(domain.ActionWait, "wait")
	require.NoError(t, err)
	assert.Equal(t, domain.RuleWaitParameter, rule.Kind)

	// Same override applies under an arbitrary kind.
	rule, err = r.Rule(domain.ActionOrient, "wait")
	require.NoError(t, err)
	assert.Equal(t, domain.RuleWaitParameter, rule.Kind)
}

func TestSyncBatchableExcludesSlowKinds(t *testing.T) {
	assert.True(t, SyncBatchable[domain.ActionTodo])
	assert.False(t, SyncBatchable[domain.ActionExecuteShell])
	assert.False(t, SyncBatchable[domain.ActionWait])
	assert.False(t, SyncBatchable[domain.ActionBatchSync])
}

func TestAsyncBatchable(t *testing.T) {
	assert.True(t, AsyncBatchable(domain.ActionExecuteShell))
	assert.True(t, AsyncBatchable(domain.ActionWebFetch))
	assert.False(t, AsyncBatchable(domain.ActionWait))
	assert.False(t, AsyncBatchable(domain.ActionBatchSync))
	assert.False(t, AsyncBatchable(domain.ActionBatchAsync))
}
