package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quorum/internal/domain"
)

func TestFileWriteThenRead(t *testing.T) {
	root := t.TempDir()
	write := NewFileWriteHandler(mustSchema(t, domain.ActionFileWrite), root, testLogger())
	read := NewFileReadHandler(mustSchema(t, domain.ActionFileRead), root, testLogger())

	_, err := write.Execute(context.Background(), invocation("agent-1", domain.Params{
		"path":    "notes/plan.md",
		"content": "step one",
	}))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	value, err := read.Execute(context.Background(), invocation("agent-1", domain.Params{
		"path": "notes/plan.md",
	}))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	result := value.(map[string]any)
	if result["content"] != "step one" {
		t.Fatalf("content = %v", result["content"])
	}
	if result["truncated"] != false {
		t.Fatalf("truncated = %v", result["truncated"])
	}
}

func TestFileReadTruncation(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "big.txt"), []byte("0123456789"), 0600); err != nil {
		t.Fatal(err)
	}
	read := NewFileReadHandler(mustSchema(t, domain.ActionFileRead), root, testLogger())

	value, err := read.Execute(context.Background(), invocation("agent-1", domain.Params{
		"path":      "big.txt",
		"max_bytes": 4,
	}))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	result := value.(map[string]any)
	if result["content"] != "0123" || result["truncated"] != true {
		t.Fatalf("result = %v", result)
	}
}

func TestFileReadMissing(t *testing.T) {
	read := NewFileReadHandler(mustSchema(t, domain.ActionFileRead), t.TempDir(), testLogger())
	_, err := read.Execute(context.Background(), invocation("agent-1", domain.Params{
		"path": "nope.txt",
	}))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWorkspaceConfinement(t *testing.T) {
	root := t.TempDir()
	write := NewFileWriteHandler(mustSchema(t, domain.ActionFileWrite), root, testLogger())

	for _, path := range []string{"/etc/passwd", "../outside.txt", "a/../../outside.txt"} {
		_, err := write.Execute(context.Background(), invocation("agent-1", domain.Params{
			"path":    path,
			"content": "x",
		}))
		if !errors.Is(err, domain.ErrActionNotAllowed) {
			t.Fatalf("path %q: err = %v, want ErrActionNotAllowed", path, err)
		}
	}
}

func TestWorkspacePathNormalization(t *testing.T) {
	got, err := workspacePath("/ws", "a/./b/../c.txt")
	if err != nil {
		t.Fatalf("workspacePath: %v", err)
	}
	if got != filepath.Join("/ws", "a", "c.txt") {
		t.Fatalf("got %q", got)
	}
}
