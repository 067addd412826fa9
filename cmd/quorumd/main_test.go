package main

import (
	"io"
	"log/slog"
	"testing"

	"quorum/internal/domain"
	"quorum/internal/infra/config"
)

func TestCapabilityGroupsDefault(t *testing.T) {
	groups := capabilityGroups(config.Default())
	if len(groups["observe"]) == 0 || len(groups["shell"]) == 0 {
		t.Fatalf("default groups incomplete: %v", groups)
	}
}

func TestCapabilityGroupsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Capabilities = map[string][]string{"readonly": {"orient", "file_read"}}

	groups := capabilityGroups(cfg)
	if len(groups) != 1 {
		t.Fatalf("groups = %v", groups)
	}
	want := []domain.ActionKind{domain.ActionOrient, domain.ActionFileRead}
	got := groups["readonly"]
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("readonly = %v", got)
	}
}

func TestBuildEmbedderWithoutKey(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.APIKeyEnv = "QUORUM_TEST_MISSING_KEY"

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if embedder := buildEmbedder(cfg, log); embedder != nil {
		t.Fatalf("expected nil embedder without API key, got %s", embedder.Name())
	}
}

func TestRegisterHandlersCoversCatalog(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	cfg.Workspace = t.TempDir()

	registry, schemas, err := buildRegistry(cfg, log, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	for _, kind := range schemas.List() {
		if _, err := registry.Resolve(kind); err != nil {
			t.Errorf("no handler for %s: %v", kind, err)
		}
	}
}
