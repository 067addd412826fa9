package usecase

import "quorum/internal/domain"

// CapabilityTable maps named capability groups to the action kinds they
// authorize. The check is deny-by-default: a kind covered by none of the
// caller's granted groups is refused before any cost is incurred.
type CapabilityTable struct {
	groups map[string]map[domain.ActionKind]bool
}

// NewCapabilityTable builds an immutable table from group definitions.
func NewCapabilityTable(groups map[string][]domain.ActionKind) *CapabilityTable {
	t := &CapabilityTable{groups: make(map[string]map[domain.ActionKind]bool, len(groups))}
	for name, kinds := range groups {
		set := make(map[domain.ActionKind]bool, len(kinds))
		for _, k := range kinds {
			set[k] = true
		}
		t.groups[name] = set
	}
	return t
}

// DefaultCapabilityGroups is the built-in group catalog, ordered from
// low-risk observation to shell access.
func DefaultCapabilityGroups() map[string][]domain.ActionKind {
	return map[string][]domain.ActionKind{
		"observe": {
			domain.ActionOrient, domain.ActionTodo,
			domain.ActionFileRead, domain.ActionWebFetch, domain.ActionWait,
		},
		"mutate": {
			domain.ActionFileWrite, domain.ActionSendMessage,
			domain.ActionBatchSync, domain.ActionBatchAsync,
		},
		"spawn": {domain.ActionSpawnAgent},
		"shell": {domain.ActionExecuteShell},
	}
}

// Allowed reports whether any of the caller's granted groups covers kind.
// Unknown group names contribute nothing.
func (t *CapabilityTable) Allowed(_ string, kind domain.ActionKind, groups []string) bool {
	for _, name := range groups {
		if t.groups[name][kind] {
			return true
		}
	}
	return false
}
