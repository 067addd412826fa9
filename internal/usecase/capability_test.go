package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quorum/internal/domain"
)

func TestCapabilityDenyByDefault(t *testing.T) {
	table := NewCapabilityTable(DefaultCapabilityGroups())

	assert.False(t, table.Allowed("agent-1", domain.ActionExecuteShell, nil))
	assert.False(t, table.Allowed("agent-1", domain.ActionExecuteShell, []string{"observe"}))
	assert.False(t, table.Allowed("agent-1", domain.ActionExecuteShell, []string{"no-such-group"}))
	assert.True(t, table.Allowed("agent-1", domain.ActionExecuteShell, []string{"shell"}))
}

func TestCapabilityAnyGrantedGroupSuffices(t *testing.T) {
	table := NewCapabilityTable(DefaultCapabilityGroups())

	groups := []string{"observe", "mutate"}
	assert.True(t, table.Allowed("agent-1", domain.ActionFileRead, groups))
	assert.True(t, table.Allowed("agent-1", domain.ActionFileWrite, groups))
	assert.False(t, table.Allowed("agent-1", domain.ActionSpawnAgent, groups))
}

func TestCapabilityCustomGroups(t *testing.T) {
	table := NewCapabilityTable(map[string][]domain.ActionKind{
		"reader": {domain.ActionFileRead},
	})

	assert.True(t, table.Allowed("agent-1", domain.ActionFileRead, []string{"reader"}))
	assert.False(t, table.Allowed("agent-1", domain.ActionFileWrite, []string{"reader"}))
}
