// Package handler provides the concrete action handlers and the
// registry the Router and batch engines resolve them from.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
	"quorum/internal/infra/tracer"
)

// Execute is the standard handler pipeline: decode params -> start
// span -> run -> record status. The typed params P are decoded from the
// validated parameter map; by the time a handler runs, the Validator has
// already guaranteed the shapes, so a decode failure here means a
// handler declared a params struct that disagrees with its schema.
//
// The value fn returns is passed through even alongside an error: a
// stopped sync batch reports the results collected before the failure,
// and discarding them here would strand them.
func Execute[P any](
	ctx context.Context,
	spanName string,
	logger *slog.Logger,
	inv domain.Invocation,
	fn func(ctx context.Context, span trace.Span, p P) (any, error),
) (any, error) {
	ctx, span := tracer.StartSpan(ctx, spanName, trace.WithAttributes(
		tracer.StringAttr("action.id", inv.ActionID),
		tracer.StringAttr("agent.id", inv.AgentID),
	))
	defer span.End()

	p, err := decodeParams[P](inv.Params)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	value, err := fn(ctx, span, p)
	if err != nil {
		tracer.RecordError(span, err)
		logger.Warn(spanName+" failed",
			"action_id", inv.ActionID,
			"agent_id", inv.AgentID,
			"error", err,
		)
		return value, err
	}
	tracer.SetOK(span)
	return value, nil
}

func decodeParams[P any](params domain.Params) (P, error) {
	var p P
	data, err := json.Marshal(params)
	if err != nil {
		return p, domain.NewDomainError("Handler.decode", domain.ErrInvalidParamType, err.Error())
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, domain.NewDomainError("Handler.decode", domain.ErrInvalidParamType, err.Error())
	}
	return p, nil
}
