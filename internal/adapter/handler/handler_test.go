package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"quorum/internal/domain"
	"quorum/internal/schema"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustSchema(t *testing.T, kind domain.ActionKind) domain.ActionSchema {
	t.Helper()
	sch, err := schema.NewRegistry().Get(kind)
	if err != nil {
		t.Fatalf("schema for %s: %v", kind, err)
	}
	return *sch
}

func invocation(agentID string, params domain.Params) domain.Invocation {
	return domain.Invocation{ActionID: "act-test", AgentID: agentID, Params: params}
}

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, event domain.Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *recordingBus) SubscribeAll(domain.EventHandler) func()                { return func() {} }
func (b *recordingBus) Close()                                                 {}

func (b *recordingBus) types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}
