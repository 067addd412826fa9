package schema

import "quorum/internal/domain"

// SyncBatchable holds the kinds eligible for the synchronous batch
// engine: fast, local actions only. Slow or blocking kinds would stall
// the whole batch, so they are restricted to the async engine.
var SyncBatchable = map[domain.ActionKind]bool{
	domain.ActionOrient:      true,
	domain.ActionTodo:        true,
	domain.ActionFileRead:    true,
	domain.ActionFileWrite:   true,
	domain.ActionSendMessage: true,
}

// AsyncBatchable reports eligibility for the asynchronous batch engine:
// any kind except wait and the batch kinds themselves.
func AsyncBatchable(kind domain.ActionKind) bool {
	switch kind {
	case domain.ActionWait, domain.ActionBatchSync, domain.ActionBatchAsync:
		return false
	}
	return true
}

// catalog declares every action kind's contract. Priorities are strictly
// unique; low priority means conservative / low risk.
var catalog = []domain.ActionSchema{
	{
		Kind:        domain.ActionOrient,
		Description: "Record the agent's current focus and planning horizon.",
		Required:    []string{"focus"},
		Optional:    []string{"horizon"},
		Types: map[string]domain.TypeSpec{
			"focus":   domain.String(),
			"horizon": domain.EnumOf("immediate", "short", "long"),
		},
		Rules: map[string]domain.ConsensusRule{
			"focus":   domain.SemanticSimilarity(0.80),
			"horizon": domain.ModeSelection(),
		},
		Priority: 10,
	},
	{
		Kind:        domain.ActionTodo,
		Description: "Add, complete, or annotate entries on the agent's task list.",
		Optional:    []string{"add", "done", "notes"},
		Types: map[string]domain.TypeSpec{
			"add":   domain.ListOf(domain.String()),
			"done":  domain.ListOf(domain.String()),
			"notes": domain.Map(),
		},
		Rules: map[string]domain.ConsensusRule{
			"add":   domain.UnionMerge(),
			"done":  domain.UnionMerge(),
			"notes": domain.StructuralMerge(),
		},
		Priority: 20,
	},
	{
		Kind:        domain.ActionFileRead,
		Description: "Read a file from the workspace.",
		Required:    []string{"path"},
		Optional:    []string{"max_bytes"},
		Types: map[string]domain.TypeSpec{
			"path":      domain.String(),
			"max_bytes": domain.Int(),
		},
		Rules: map[string]domain.ConsensusRule{
			"path":      domain.ExactMatch(),
			"max_bytes": domain.Percentile(50),
		},
		Priority: 30,
	},
	{
		Kind:        domain.ActionFileWrite,
		Description: "Write a file in the workspace.",
		Required:    []string{"path", "content"},
		Types: map[string]domain.TypeSpec{
			"path":    domain.String(),
			"content": domain.String(),
		},
		Rules: map[string]domain.ConsensusRule{
			"path":    domain.ExactMatch(),
			"content": domain.SemanticSimilarity(0.95),
		},
		Priority:     40,
		WaitRequired: true,
	},
	{
		Kind:        domain.ActionWebFetch,
		Description: "Fetch a URL over HTTP.",
		Required:    []string{"url"},
		Optional:    []string{"mode"},
		Types: map[string]domain.TypeSpec{
			"url":  domain.URLString(),
			"mode": domain.EnumOf("text", "raw", "links"),
		},
		Rules: map[string]domain.ConsensusRule{
			"url":  domain.ExactMatch(),
			"mode": domain.ModeSelection(),
		},
		Priority: 50,
	},
	{
		Kind:        domain.ActionExecuteShell,
		Description: "Run a shell command, or poll a prior background check by ID.",
		Optional:    []string{"command", "check_id", "timeout_ms"},
		Types: map[string]domain.TypeSpec{
			"command":    domain.String(),
			"check_id":   domain.UUIDString(),
			"timeout_ms": domain.Int(),
		},
		Rules: map[string]domain.ConsensusRule{
			"command":    domain.ExactMatch(),
			"check_id":   domain.FirstNonNil(),
			"timeout_ms": domain.Percentile(50),
		},
		XorGroups:    [][]string{{"command", "check_id"}},
		Priority:     60,
		WaitRequired: true,
	},
	{
		Kind:        domain.ActionSpawnAgent,
		Description: "Spawn a child agent with a role and briefing.",
		Required:    []string{"role", "briefing"},
		Optional:    []string{"tags"},
		Types: map[string]domain.TypeSpec{
			"role":     domain.String(),
			"briefing": domain.String(),
			"tags":     domain.ListOf(domain.String()),
		},
		Rules: map[string]domain.ConsensusRule{
			"role":     domain.ModeSelection(),
			"briefing": domain.SemanticSimilarity(0.75),
			"tags":     domain.UnionMerge(),
		},
		Priority:     70,
		WaitRequired: true,
	},
	{
		Kind:        domain.ActionSendMessage,
		Description: "Send a message to another agent.",
		Required:    []string{"to", "body"},
		Types: map[string]domain.TypeSpec{
			"to":   domain.UUIDString(),
			"body": domain.String(),
		},
		Rules: map[string]domain.ConsensusRule{
			"to":   domain.ExactMatch(),
			"body": domain.SemanticSimilarity(0.85),
		},
		Priority: 80,
	},
	{
		Kind:        domain.ActionWait,
		Description: "Pause for a duration in milliseconds, indefinitely (true), or not at all (false/0).",
		Required:    []string{"wait"},
		Types: map[string]domain.TypeSpec{
			"wait": domain.UnionOf(domain.Int(), domain.Bool()),
		},
		Rules: map[string]domain.ConsensusRule{
			"wait": domain.WaitParameter(),
		},
		Priority: 90,
	},
	{
		Kind:        domain.ActionBatchSync,
		Description: "Run fast local sub-actions in order, stopping at the first failure.",
		Required:    []string{"actions"},
		Types: map[string]domain.TypeSpec{
			"actions": domain.ListOf(domain.Map()),
		},
		Rules: map[string]domain.ConsensusRule{
			"actions": domain.ExactMatch(),
		},
		Priority:     100,
		WaitRequired: true,
	},
	{
		Kind:        domain.ActionBatchAsync,
		Description: "Run sub-actions concurrently, collecting every result.",
		Required:    []string{"actions"},
		Types: map[string]domain.TypeSpec{
			"actions": domain.ListOf(domain.Map()),
		},
		Rules: map[string]domain.ConsensusRule{
			"actions": domain.ExactMatch(),
		},
		Priority:     110,
		WaitRequired: true,
	},
}
