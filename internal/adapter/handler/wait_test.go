package handler

import (
	"context"
	"testing"
	"time"

	"quorum/internal/domain"
)

func waitHandler(t *testing.T, bus domain.EventBus) *WaitHandler {
	t.Helper()
	return NewWaitHandler(mustSchema(t, domain.ActionWait), bus, testLogger())
}

func TestWaitFalseIsImmediate(t *testing.T) {
	h := waitHandler(t, nil)
	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{"wait": false}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	ack := value.(domain.Ack)
	if ack.Async {
		t.Fatal("wait: false must not be async")
	}
}

func TestWaitZeroIsImmediate(t *testing.T) {
	h := waitHandler(t, nil)
	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{"wait": 0}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if value.(domain.Ack).Async {
		t.Fatal("wait: 0 must not be async")
	}
}

func TestWaitTrueIsIndefinite(t *testing.T) {
	h := waitHandler(t, nil)
	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{"wait": true}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	ack := value.(domain.Ack)
	if !ack.Async {
		t.Fatal("wait: true must be async")
	}
	if ack.TimerID != "" {
		t.Fatalf("indefinite wait must carry no timer, got %q", ack.TimerID)
	}
}

func TestWaitDurationFiresTimer(t *testing.T) {
	bus := &recordingBus{}
	h := waitHandler(t, bus)

	completed := make(chan domain.Completion, 1)
	inv := invocation("agent-1", domain.Params{"wait": 20})
	inv.Complete = func(c domain.Completion) { completed <- c }

	value, err := h.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	ack := value.(domain.Ack)
	if !ack.Async || ack.TimerID == "" {
		t.Fatalf("ack = %+v, want async with timer id", ack)
	}

	select {
	case c := <-completed:
		if c.ActionID != inv.ActionID {
			t.Fatalf("completion action id = %s", c.ActionID)
		}
		result := c.Value.(map[string]any)
		if result["timer_id"] != ack.TimerID {
			t.Fatalf("completion timer id = %v, want %s", result["timer_id"], ack.TimerID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer completion never arrived")
	}

	types := bus.types()
	if len(types) != 2 || types[0] != domain.EventTimerScheduled || types[1] != domain.EventTimerFired {
		t.Fatalf("events = %v", types)
	}
}
