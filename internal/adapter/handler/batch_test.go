package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"quorum/internal/domain"
	"quorum/internal/schema"
	"quorum/internal/usecase"
)

func batchFixture(t *testing.T) (*Registry, *usecase.BatchEngines) {
	t.Helper()
	reg := NewRegistry(testLogger())
	if err := reg.Register(NewTodoHandler(mustSchema(t, domain.ActionTodo), testLogger())); err != nil {
		t.Fatalf("register todo: %v", err)
	}
	schemas := schema.NewRegistry()
	engines := usecase.NewBatchEngines(schemas, usecase.NewValidator(schemas), reg, nil, testLogger())
	return reg, engines
}

func TestBatchSyncHandlerRunsInOrder(t *testing.T) {
	_, engines := batchFixture(t)
	h := NewBatchSyncHandler(mustSchema(t, domain.ActionBatchSync), engines, testLogger())

	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"actions": []any{
			map[string]any{"kind": "todo", "params": map[string]any{"add": []any{"first"}}},
			map[string]any{"kind": "todo", "params": map[string]any{"add": []any{"second"}}},
		},
	}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	results := value.([]domain.BatchItemResult)
	if len(results) != 2 || !results[0].OK || !results[1].OK {
		t.Fatalf("results = %+v", results)
	}
}

func TestBatchSyncHandlerReturnsPartialsOnFailure(t *testing.T) {
	_, engines := batchFixture(t)
	h := NewBatchSyncHandler(mustSchema(t, domain.ActionBatchSync), engines, testLogger())

	// Only the todo handler is registered: the second sub-action fails at
	// dispatch after the first has already run. The results collected
	// before the stop must come back alongside the error.
	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"actions": []any{
			map[string]any{"kind": "todo", "params": map[string]any{"add": []any{"first"}}},
			map[string]any{"kind": "file_read", "params": map[string]any{"path": "gone"}},
		},
	}))
	if err == nil {
		t.Fatal("want failure from the unresolvable sub-action")
	}
	results, ok := value.([]domain.BatchItemResult)
	if !ok {
		t.Fatalf("value = %T, want the partial results alongside the error", value)
	}
	if len(results) != 1 || !results[0].OK || results[0].Kind != domain.ActionTodo {
		t.Fatalf("results = %+v", results)
	}
}

func TestBatchSyncHandlerRejectsBadSpec(t *testing.T) {
	_, engines := batchFixture(t)
	h := NewBatchSyncHandler(mustSchema(t, domain.ActionBatchSync), engines, testLogger())

	_, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"actions": []any{
			map[string]any{"kind": "todo", "params": map[string]any{}},
		},
	}))
	if !errors.Is(err, domain.ErrBatchTooSmall) {
		t.Fatalf("err = %v, want ErrBatchTooSmall", err)
	}
}

func TestBatchAsyncHandlerDelegatesCompletion(t *testing.T) {
	_, engines := batchFixture(t)
	h := NewBatchAsyncHandler(mustSchema(t, domain.ActionBatchAsync), engines, testLogger())

	completed := make(chan domain.Completion, 1)
	inv := invocation("agent-1", domain.Params{
		"actions": []any{
			map[string]any{"kind": "todo", "params": map[string]any{"add": []any{"a"}}},
			map[string]any{"kind": "todo", "params": map[string]any{"add": []any{"b"}}},
		},
	})
	inv.Complete = func(c domain.Completion) { completed <- c }

	value, err := h.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	ack := value.(domain.Ack)
	if !ack.Async || ack.Started != 2 {
		t.Fatalf("ack = %+v", ack)
	}

	select {
	case c := <-completed:
		// The completion is re-keyed to the batch_async action itself.
		if c.ActionID != inv.ActionID {
			t.Fatalf("completion action id = %s, want %s", c.ActionID, inv.ActionID)
		}
		results := c.Value.([]domain.BatchItemResult)
		if len(results) != 2 {
			t.Fatalf("results = %+v", results)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch completion never arrived")
	}
}
