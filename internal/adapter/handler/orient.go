package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

// OrientHandler records each agent's current focus and planning horizon.
type OrientHandler struct {
	schema domain.ActionSchema
	logger *slog.Logger

	mu    sync.Mutex
	state map[string]Orientation
}

// Orientation is one agent's recorded focus.
type Orientation struct {
	Focus      string    `json:"focus"`
	Horizon    string    `json:"horizon,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type orientParams struct {
	Focus   string `json:"focus"`
	Horizon string `json:"horizon,omitempty"`
}

// NewOrientHandler creates the orient handler.
func NewOrientHandler(schema domain.ActionSchema, logger *slog.Logger) *OrientHandler {
	return &OrientHandler{
		schema: schema,
		logger: logger,
		state:  make(map[string]Orientation),
	}
}

func (h *OrientHandler) Kind() domain.ActionKind       { return domain.ActionOrient }
func (h *OrientHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *OrientHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.orient", h.logger, inv,
		func(_ context.Context, _ trace.Span, p orientParams) (any, error) {
			s := Orientation{Focus: p.Focus, Horizon: p.Horizon, RecordedAt: time.Now().UTC()}
			h.mu.Lock()
			h.state[inv.AgentID] = s
			h.mu.Unlock()
			return s, nil
		})
}

// Current returns the agent's last recorded orientation.
func (h *OrientHandler) Current(agentID string) (Orientation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.state[agentID]
	return s, ok
}
