package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

// SpawnBackend starts child agents. Implementations classify temporary
// failures by wrapping domain.ErrTransient so callers can retry.
type SpawnBackend interface {
	Spawn(ctx context.Context, req SpawnRequest) (SpawnResult, error)
}

// SpawnRequest describes the child agent to start.
type SpawnRequest struct {
	ParentID string   `json:"parent_id"`
	Role     string   `json:"role"`
	Briefing string   `json:"briefing"`
	Tags     []string `json:"tags,omitempty"`
}

// SpawnResult identifies a started child agent.
type SpawnResult struct {
	ChildID   string    `json:"child_id"`
	Role      string    `json:"role"`
	StartedAt time.Time `json:"started_at"`
}

// SpawnHandler delegates spawn_agent actions to a backend.
type SpawnHandler struct {
	schema  domain.ActionSchema
	backend SpawnBackend
	logger  *slog.Logger
}

type spawnParams struct {
	Role     string   `json:"role"`
	Briefing string   `json:"briefing"`
	Tags     []string `json:"tags,omitempty"`
}

// NewSpawnHandler creates the spawn handler.
func NewSpawnHandler(schema domain.ActionSchema, backend SpawnBackend, logger *slog.Logger) *SpawnHandler {
	return &SpawnHandler{schema: schema, backend: backend, logger: logger}
}

func (h *SpawnHandler) Kind() domain.ActionKind       { return domain.ActionSpawnAgent }
func (h *SpawnHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *SpawnHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.spawn_agent", h.logger, inv,
		func(ctx context.Context, span trace.Span, p spawnParams) (any, error) {
			res, err := h.backend.Spawn(ctx, SpawnRequest{
				ParentID: inv.AgentID,
				Role:     p.Role,
				Briefing: p.Briefing,
				Tags:     p.Tags,
			})
			if err != nil {
				return nil, err
			}
			h.logger.Info("child agent spawned",
				"parent_id", inv.AgentID, "child_id", res.ChildID, "role", res.Role)
			return res, nil
		})
}

// MemorySpawner is an in-process SpawnBackend that records spawned children.
type MemorySpawner struct {
	mu       sync.Mutex
	children map[string]SpawnResult
}

// NewMemorySpawner creates an empty in-process spawner.
func NewMemorySpawner() *MemorySpawner {
	return &MemorySpawner{children: make(map[string]SpawnResult)}
}

func (s *MemorySpawner) Spawn(_ context.Context, req SpawnRequest) (SpawnResult, error) {
	res := SpawnResult{
		ChildID:   ulid.Make().String(),
		Role:      req.Role,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.children[res.ChildID] = res
	s.mu.Unlock()
	return res, nil
}

// Children returns all spawned agents, unordered.
func (s *MemorySpawner) Children() []SpawnResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpawnResult, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, c)
	}
	return out
}
