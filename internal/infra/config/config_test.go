package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quorum.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "consensus:\n  proposals: 5\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Consensus.Proposals != 5 {
		t.Fatalf("proposals = %d, want 5", cfg.Consensus.Proposals)
	}
	if cfg.Consensus.Timeout != "30s" {
		t.Fatalf("timeout default missing, got %q", cfg.Consensus.Timeout)
	}
	if cfg.Logger.Level != "info" {
		t.Fatalf("logger default missing, got %q", cfg.Logger.Level)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "consensus:\n  timeout: notaduration\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestLoadRejectsZeroProposals(t *testing.T) {
	path := writeConfig(t, "consensus:\n  proposals: 0\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected proposals validation error")
	}
}

func TestLoadCapabilitiesAndBudgets(t *testing.T) {
	path := writeConfig(t, `
capabilities:
  reader: [file_read, orient]
budgets:
  agent-1: 12.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Capabilities["reader"]; len(got) != 2 {
		t.Fatalf("capabilities = %v", got)
	}
	if cfg.Budgets["agent-1"] != 12.5 {
		t.Fatalf("budget = %v", cfg.Budgets["agent-1"])
	}
}

func TestDuration(t *testing.T) {
	if d := Duration("250ms", time.Second); d != 250*time.Millisecond {
		t.Fatalf("got %v", d)
	}
	if d := Duration("", time.Second); d != time.Second {
		t.Fatalf("got %v", d)
	}
	if d := Duration("junk", 2*time.Second); d != 2*time.Second {
		t.Fatalf("got %v", d)
	}
}
