package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quorum/internal/domain"
)

func shellHandler(t *testing.T, allowed []string, threshold time.Duration) *ShellHandler {
	t.Helper()
	return NewShellHandler(mustSchema(t, domain.ActionExecuteShell), allowed, threshold, testLogger())
}

func TestShellAllowlist(t *testing.T) {
	h := shellHandler(t, []string{"echo"}, time.Second)

	_, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"command": "rm -rf /",
	}))
	if !errors.Is(err, domain.ErrActionNotAllowed) {
		t.Fatalf("err = %v, want ErrActionNotAllowed", err)
	}
}

func TestShellSyncCommand(t *testing.T) {
	h := shellHandler(t, nil, time.Second)

	value, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"command": "echo hello",
	}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	result := value.(map[string]any)
	if !strings.Contains(result["output"].(string), "hello") {
		t.Fatalf("output = %v", result["output"])
	}
	if result["exit_code"] != 0 {
		t.Fatalf("exit_code = %v", result["exit_code"])
	}
}

func TestShellNonZeroExit(t *testing.T) {
	h := shellHandler(t, nil, time.Second)

	_, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"command": "exit 3",
	}))
	if err == nil || !strings.Contains(err.Error(), "exited 3") {
		t.Fatalf("err = %v, want exit status in message", err)
	}
}

func TestShellBackgroundAndPoll(t *testing.T) {
	h := shellHandler(t, nil, 50*time.Millisecond)

	completed := make(chan domain.Completion, 1)
	inv := invocation("agent-1", domain.Params{"command": "sleep 0.3; echo later"})
	inv.Complete = func(c domain.Completion) { completed <- c }

	value, err := h.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	ack, ok := value.(domain.Ack)
	if !ok || !ack.Async || ack.CheckID == "" {
		t.Fatalf("value = %+v, want async ack with check id", value)
	}

	// Still running right after the threshold.
	status, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"check_id": ack.CheckID,
	}))
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.(map[string]any)["status"] != "running" {
		t.Fatalf("status = %v", status)
	}

	select {
	case c := <-completed:
		if c.Err != nil {
			t.Fatalf("completion err = %v", c.Err)
		}
		result := c.Value.(map[string]any)
		if !strings.Contains(result["output"].(string), "later") {
			t.Fatalf("output = %v", result["output"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("background completion never arrived")
	}

	// The finished check remains pollable exactly once.
	done, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"check_id": ack.CheckID,
	}))
	if err != nil {
		t.Fatalf("final poll: %v", err)
	}
	if done.(map[string]any)["status"] != "done" {
		t.Fatalf("final status = %v", done)
	}

	_, err = h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"check_id": ack.CheckID,
	}))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("drained poll err = %v, want ErrNotFound", err)
	}
}

func TestShellTimeoutKillsCommand(t *testing.T) {
	h := shellHandler(t, nil, time.Second)

	_, err := h.Execute(context.Background(), invocation("agent-1", domain.Params{
		"command":    "sleep 10",
		"timeout_ms": 100,
	}))
	if err == nil {
		t.Fatal("expected timeout failure")
	}
}
