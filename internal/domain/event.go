package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event being published.
type EventType string

const (
	EventActionStarted   EventType = "action.started"
	EventActionCompleted EventType = "action.completed"
	EventActionError     EventType = "action.error"

	EventConsensusReached EventType = "consensus.reached"
	EventConsensusFailed  EventType = "consensus.failed"

	EventBatchStarted   EventType = "batch.started"
	EventBatchCompleted EventType = "batch.completed"

	EventTimerScheduled EventType = "timer.scheduled"
	EventTimerFired     EventType = "timer.fired"

	EventRouterTerminated EventType = "router.terminated"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	ActionID  string          `json:"action_id,omitempty"`
	AgentID   string          `json:"agent_id,omitempty"`
	Kind      ActionKind      `json:"kind,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for lifecycle events.
// Publish is fire-and-forget: the Router never waits on subscribers.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
