package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"quorum/internal/domain"
	"quorum/internal/schema"
)

// BatchEngines runs compound actions. The sync engine executes
// sub-actions in order and stops at the first failure; the async engine
// fans out all sub-actions and collects every result. Both resolve
// handlers directly rather than spawning nested Routers: a batch Router
// waiting on a child Router for its own action would deadlock its own
// supervision.
type BatchEngines struct {
	schemas   *schema.Registry
	validator *Validator
	handlers  domain.HandlerRegistry
	bus       domain.EventBus
	logger    *slog.Logger
}

// NewBatchEngines creates the batch engines.
func NewBatchEngines(schemas *schema.Registry, validator *Validator, handlers domain.HandlerRegistry, bus domain.EventBus, logger *slog.Logger) *BatchEngines {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchEngines{
		schemas:   schemas,
		validator: validator,
		handlers:  handlers,
		bus:       bus,
		logger:    logger,
	}
}

// DecodeBatchSpec converts the validated "actions" parameter into a
// BatchSpec.
func DecodeBatchSpec(value any) (domain.BatchSpec, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, domain.NewDomainError("Batch.decode", domain.ErrInvalidParamType,
			fmt.Sprintf("actions: want list, got %T", value))
	}
	spec := make(domain.BatchSpec, 0, len(list))
	for i, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, domain.NewDomainError("Batch.decode", domain.ErrInvalidParamType,
				fmt.Sprintf("actions[%d]: want map, got %T", i, elem))
		}
		kind, _ := m["kind"].(string)
		var params domain.Params
		if p, ok := m["params"].(map[string]any); ok {
			params = p
		} else {
			params = domain.Params{}
		}
		spec = append(spec, domain.SubAction{Kind: domain.ActionKind(kind), Params: params})
	}
	return spec, nil
}

// validateBatch applies the shared eligibility pipeline in strict order;
// the first failing stage wins.
func (b *BatchEngines) validateBatch(spec domain.BatchSpec, eligible func(domain.ActionKind) bool) error {
	switch {
	case len(spec) < 1:
		return domain.NewDomainError("Batch.validate", domain.ErrEmptyBatch, "")
	case len(spec) == 1:
		return domain.NewDomainError("Batch.validate", domain.ErrBatchTooSmall, "")
	}

	// Nesting is illegal regardless of the engine's predicate, so it is
	// checked first.
	for _, sub := range spec {
		if sub.Kind == domain.ActionBatchSync || sub.Kind == domain.ActionBatchAsync {
			return domain.NewDomainError("Batch.validate", domain.ErrNestedBatch, string(sub.Kind))
		}
	}
	for _, sub := range spec {
		if !eligible(sub.Kind) {
			return domain.NewDomainError("Batch.validate", domain.ErrUnbatchableAction, string(sub.Kind))
		}
	}

	for _, sub := range spec {
		kind := string(sub.Kind)
		if _, err := b.validator.ValidateAction(RawAction{Kind: &kind, Params: sub.Params, HasParams: true}); err != nil {
			return domain.WrapOp(fmt.Sprintf("Batch.validate %s", sub.Kind), err)
		}
	}
	return nil
}

// runSub resolves and executes one sub-action, returning its wrapped
// result. Handler panics are contained here: a crashing sub-action
// becomes an error entry, never a crashed engine.
func (b *BatchEngines) runSub(ctx context.Context, agentID, batchID string, idx int, sub domain.SubAction) (item domain.BatchItemResult) {
	item = domain.BatchItemResult{Kind: sub.Kind}

	h, err := b.handlers.Resolve(sub.Kind)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("batch sub-action panicked",
				"batch_id", batchID, "kind", sub.Kind, "panic", r)
			item.OK = false
			item.Value = nil
			item.Error = fmt.Sprintf("handler panic: %v", r)
		}
	}()

	value, err := h.Execute(ctx, domain.Invocation{
		ActionID: fmt.Sprintf("%s/%d", batchID, idx),
		AgentID:  agentID,
		Params:   sub.Params,
	})
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.OK = true
	item.Value = value
	return item
}
