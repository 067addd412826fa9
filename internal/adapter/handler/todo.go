package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

// TodoHandler maintains each agent's task list.
type TodoHandler struct {
	schema domain.ActionSchema
	logger *slog.Logger

	mu    sync.Mutex
	lists map[string]*TaskList
}

// TaskList is one agent's task state.
type TaskList struct {
	Open  []string       `json:"open"`
	Done  []string       `json:"done"`
	Notes map[string]any `json:"notes,omitempty"`
}

type todoParams struct {
	Add   []string       `json:"add,omitempty"`
	Done  []string       `json:"done,omitempty"`
	Notes map[string]any `json:"notes,omitempty"`
}

// NewTodoHandler creates the todo handler.
func NewTodoHandler(schema domain.ActionSchema, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		schema: schema,
		logger: logger,
		lists:  make(map[string]*TaskList),
	}
}

func (h *TodoHandler) Kind() domain.ActionKind       { return domain.ActionTodo }
func (h *TodoHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *TodoHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.todo", h.logger, inv,
		func(_ context.Context, _ trace.Span, p todoParams) (any, error) {
			h.mu.Lock()
			defer h.mu.Unlock()

			list, ok := h.lists[inv.AgentID]
			if !ok {
				list = &TaskList{Notes: make(map[string]any)}
				h.lists[inv.AgentID] = list
			}

			for _, entry := range p.Add {
				if !slices.Contains(list.Open, entry) {
					list.Open = append(list.Open, entry)
				}
			}
			for _, entry := range p.Done {
				if i := slices.Index(list.Open, entry); i >= 0 {
					list.Open = slices.Delete(list.Open, i, i+1)
				}
				if !slices.Contains(list.Done, entry) {
					list.Done = append(list.Done, entry)
				}
			}
			for k, v := range p.Notes {
				list.Notes[k] = v
			}

			return list.snapshot(), nil
		})
}

// snapshot copies the list so callers never see later mutations.
func (l *TaskList) snapshot() TaskList {
	out := TaskList{
		Open:  slices.Clone(l.Open),
		Done:  slices.Clone(l.Done),
		Notes: make(map[string]any, len(l.Notes)),
	}
	for k, v := range l.Notes {
		out.Notes[k] = v
	}
	return out
}
