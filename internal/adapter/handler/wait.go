package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

// WaitHandler pauses an agent. A numeric duration schedules a timer whose
// expiry arrives as a deferred completion; `wait: true` suspends with no
// timer at all, and `wait: false` (or a non-positive duration) is a no-op.
type WaitHandler struct {
	schema domain.ActionSchema
	bus    domain.EventBus
	logger *slog.Logger
}

type waitParams struct {
	Wait any `json:"wait"`
}

// NewWaitHandler creates the wait handler. bus may be nil.
func NewWaitHandler(schema domain.ActionSchema, bus domain.EventBus, logger *slog.Logger) *WaitHandler {
	return &WaitHandler{schema: schema, bus: bus, logger: logger}
}

func (h *WaitHandler) Kind() domain.ActionKind       { return domain.ActionWait }
func (h *WaitHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *WaitHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.wait", h.logger, inv,
		func(ctx context.Context, _ trace.Span, p waitParams) (any, error) {
			switch v := p.Wait.(type) {
			case bool:
				if v {
					// Indefinite wait: no timer, the deferred completion
					// never arrives and the action timeout bounds it.
					return domain.Ack{Async: true, Status: "waiting"}, nil
				}
				return domain.Ack{Async: false}, nil
			case float64:
				return h.schedule(ctx, inv, time.Duration(v)*time.Millisecond)
			default:
				return nil, domain.NewDomainError("Wait", domain.ErrInvalidParamType,
					"wait must be a boolean or a duration in milliseconds")
			}
		})
}

func (h *WaitHandler) schedule(ctx context.Context, inv domain.Invocation, d time.Duration) (any, error) {
	if d <= 0 {
		return domain.Ack{Async: false}, nil
	}

	timerID := ulid.Make().String()
	h.publishTimer(ctx, domain.EventTimerScheduled, inv, timerID, d)

	complete := inv.Complete
	time.AfterFunc(d, func() {
		h.publishTimer(context.Background(), domain.EventTimerFired, inv, timerID, d)
		if complete != nil {
			complete(domain.Completion{
				ActionID: inv.ActionID,
				Value:    map[string]any{"timer_id": timerID, "waited_ms": d.Milliseconds()},
			})
		}
	})

	h.logger.Debug("wait timer scheduled",
		"action_id", inv.ActionID, "timer_id", timerID, "duration", d)
	return domain.Ack{Async: true, TimerID: timerID, Status: "waiting"}, nil
}

func (h *WaitHandler) publishTimer(ctx context.Context, typ domain.EventType, inv domain.Invocation, timerID string, d time.Duration) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{"timer_id": timerID, "duration_ms": d.Milliseconds()})
	h.bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		ActionID:  inv.ActionID,
		AgentID:   inv.AgentID,
		Kind:      domain.ActionWait,
		Payload:   payload,
	})
}
