package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ActionKind identifies the typed category of a proposed action.
// The set of kinds is closed: unknown strings are rejected at validation
// and never materialize as a new kind.
type ActionKind string

const (
	ActionOrient       ActionKind = "orient"
	ActionTodo         ActionKind = "todo"
	ActionFileRead     ActionKind = "file_read"
	ActionFileWrite    ActionKind = "file_write"
	ActionWebFetch     ActionKind = "web_fetch"
	ActionExecuteShell ActionKind = "execute_shell"
	ActionSpawnAgent   ActionKind = "spawn_agent"
	ActionSendMessage  ActionKind = "send_message"
	ActionWait         ActionKind = "wait"
	ActionBatchSync    ActionKind = "batch_sync"
	ActionBatchAsync   ActionKind = "batch_async"
)

// Params is one candidate parameter map for an action, as decoded from JSON.
type Params map[string]any

// Proposal carries one agent's independently sampled candidate parameter
// maps for a single action instance. It exists only for the lifetime of
// the Router that consumes it.
type Proposal struct {
	Kind      ActionKind `json:"kind"`
	Params    Params     `json:"params"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// Action is a validated, consensus-agreed action ready for dispatch.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Params    Params     `json:"params"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// Ack is the immediate response from an asynchronous handler. The real
// result arrives later as a Completion.
type Ack struct {
	Async   bool   `json:"async"`
	TimerID string `json:"timer_id,omitempty"`
	BatchID string `json:"batch_id,omitempty"`
	CheckID string `json:"check_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Started int    `json:"started,omitempty"`
}

// Completion is the out-of-band final result of an asynchronous dispatch.
type Completion struct {
	ActionID string
	Value    any
	Err      error
}

// Outcome is the single terminal message a Router delivers to its owning
// agent. Exactly one Outcome is sent per action instance.
type Outcome struct {
	ActionID string
	Kind     ActionKind
	Value    any
	Err      error
}

// AgentRef is a Router's view of its owning agent: a liveness signal and
// a mailbox for the terminal outcome. Done is closed when the agent dies;
// a Router observing that cancels itself without completing the action.
type AgentRef struct {
	ID      string
	Done    <-chan struct{}
	Mailbox chan<- Outcome
}

// Invocation carries one validated action into a handler.
type Invocation struct {
	ActionID string
	AgentID  string
	Params   Params

	// Complete delivers the deferred result of an asynchronous handler.
	// Nil when the caller only dispatches synchronous handlers.
	Complete func(Completion)
}

// Handler executes one action kind. Synchronous handlers return their
// final value from Execute. Asynchronous handlers return an Ack with
// Async set and deliver the final value via Invocation.Complete.
type Handler interface {
	Kind() ActionKind
	// ParamsSchema returns the JSON Schema for the handler's parameters,
	// or nil if the handler carries none.
	ParamsSchema() json.RawMessage
	Execute(ctx context.Context, inv Invocation) (any, error)
}

// HandlerRegistry resolves action kinds to their handlers.
type HandlerRegistry interface {
	Resolve(kind ActionKind) (Handler, error)
	Kinds() []ActionKind
}

// SubAction is one element of a batch.
type SubAction struct {
	Kind   ActionKind `json:"kind"`
	Params Params     `json:"params"`
}

// BatchSpec is the ordered list of sub-actions in a compound action.
type BatchSpec []SubAction

// BatchItemResult is one wrapped sub-action result, in input order.
type BatchItemResult struct {
	Kind  ActionKind `json:"kind"`
	OK    bool       `json:"ok"`
	Value any        `json:"value,omitempty"`
	Error string     `json:"error,omitempty"`
}

// AuditRecord is the persisted trace of one action execution. Params are
// scrubbed before the record is written.
type AuditRecord struct {
	ActionID   string
	AgentID    string
	Kind       ActionKind
	Outcome    string // "ok", "error", or "cancelled"
	Detail     string
	Params     Params
	StartedAt  time.Time
	FinishedAt time.Time
}

// AuditStore persists action audit records. Write failures are logged by
// callers, never propagated into the action result.
type AuditStore interface {
	Record(ctx context.Context, rec AuditRecord) error
	Close() error
}
