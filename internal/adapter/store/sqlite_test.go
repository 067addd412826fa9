package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quorum/internal/domain"
)

func testStore(t *testing.T) *SQLiteAuditStore {
	t.Helper()
	s, err := NewSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(actionID, agentID, outcome string) domain.AuditRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.AuditRecord{
		ActionID:   actionID,
		AgentID:    agentID,
		Kind:       domain.ActionOrient,
		Outcome:    outcome,
		Detail:     "",
		Params:     domain.Params{"focus": "triage"},
		StartedAt:  now,
		FinishedAt: now.Add(5 * time.Millisecond),
	}
}

func TestAuditRecordRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sampleRecord("act-1", "agent-1", "ok")
	if err := s.Record(ctx, want); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := s.Get(ctx, "act-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AgentID != want.AgentID || got.Kind != want.Kind || got.Outcome != want.Outcome {
		t.Fatalf("got %+v", got)
	}
	if got.Params["focus"] != "triage" {
		t.Fatalf("params = %v", got.Params)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("started_at = %v, want %v", got.StartedAt, want.StartedAt)
	}
}

func TestAuditGetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAuditByAgentOrdering(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := sampleRecord("act-1", "agent-1", "ok")
	second := sampleRecord("act-2", "agent-1", "error")
	second.StartedAt = first.StartedAt.Add(time.Second)
	other := sampleRecord("act-3", "agent-2", "ok")

	for _, rec := range []domain.AuditRecord{second, other, first} {
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.ActionID, err)
		}
	}

	recs, err := s.ByAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("by agent: %v", err)
	}
	if len(recs) != 2 || recs[0].ActionID != "act-1" || recs[1].ActionID != "act-2" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestAuditDuplicateActionID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := sampleRecord("act-1", "agent-1", "ok")
	if err := s.Record(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	err := s.Record(ctx, rec)
	if !errors.Is(err, domain.ErrAuditWrite) {
		t.Fatalf("duplicate err = %v, want ErrAuditWrite", err)
	}
}
