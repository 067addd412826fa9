package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
	"quorum/internal/usecase"
)

// BatchSyncHandler runs a batch of sub-actions in order through the
// synchronous engine, stopping at the first failure.
type BatchSyncHandler struct {
	schema  domain.ActionSchema
	engines *usecase.BatchEngines
	logger  *slog.Logger
}

// NewBatchSyncHandler creates the batch_sync handler.
func NewBatchSyncHandler(schema domain.ActionSchema, engines *usecase.BatchEngines, logger *slog.Logger) *BatchSyncHandler {
	return &BatchSyncHandler{schema: schema, engines: engines, logger: logger}
}

func (h *BatchSyncHandler) Kind() domain.ActionKind       { return domain.ActionBatchSync }
func (h *BatchSyncHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *BatchSyncHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.batch_sync", h.logger, inv,
		func(ctx context.Context, _ trace.Span, p batchParams) (any, error) {
			spec, err := usecase.DecodeBatchSpec(p.Actions)
			if err != nil {
				return nil, err
			}
			results, err := h.engines.RunSync(ctx, inv.AgentID, spec)
			if err != nil {
				return results, err
			}
			return results, nil
		})
}

// BatchAsyncHandler fans a batch out through the asynchronous engine and
// acknowledges immediately; the ordered results arrive as a deferred
// completion.
type BatchAsyncHandler struct {
	schema  domain.ActionSchema
	engines *usecase.BatchEngines
	logger  *slog.Logger
}

// NewBatchAsyncHandler creates the batch_async handler.
func NewBatchAsyncHandler(schema domain.ActionSchema, engines *usecase.BatchEngines, logger *slog.Logger) *BatchAsyncHandler {
	return &BatchAsyncHandler{schema: schema, engines: engines, logger: logger}
}

func (h *BatchAsyncHandler) Kind() domain.ActionKind       { return domain.ActionBatchAsync }
func (h *BatchAsyncHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *BatchAsyncHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.batch_async", h.logger, inv,
		func(ctx context.Context, _ trace.Span, p batchParams) (any, error) {
			spec, err := usecase.DecodeBatchSpec(p.Actions)
			if err != nil {
				return nil, err
			}
			actionID := inv.ActionID
			complete := inv.Complete
			ack, err := h.engines.RunAsync(ctx, inv.AgentID, spec, func(c domain.Completion) {
				if complete != nil {
					c.ActionID = actionID
					complete(c)
				}
			})
			if err != nil {
				return nil, err
			}
			return ack, nil
		})
}

type batchParams struct {
	Actions []any `json:"actions"`
}
