package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"quorum/internal/domain"
	"quorum/internal/schema"
)

// RunSync executes spec's sub-actions strictly in input order, one at a
// time. On the first failure it stops and returns the results collected
// so far (input order, excluding the failed element) together with the
// failure; the remaining sub-actions never execute. On full success it
// returns one wrapped result per input element.
func (b *BatchEngines) RunSync(ctx context.Context, agentID string, spec domain.BatchSpec) ([]domain.BatchItemResult, error) {
	if err := b.validateBatch(spec, func(kind domain.ActionKind) bool {
		return schema.SyncBatchable[kind]
	}); err != nil {
		return nil, err
	}

	batchID := ulid.Make().String()
	b.publishBatchEvent(ctx, domain.EventBatchStarted, batchID, agentID, len(spec))

	results := make([]domain.BatchItemResult, 0, len(spec))
	for i, sub := range spec {
		item := b.runSub(ctx, agentID, batchID, i, sub)
		if !item.OK {
			b.logger.Warn("sync batch stopped on failure",
				"batch_id", batchID,
				"index", i,
				"kind", sub.Kind,
				"error", item.Error,
			)
			b.publishBatchEvent(ctx, domain.EventBatchCompleted, batchID, agentID, len(results))
			return results, fmt.Errorf("sub-action %d (%s): %s", i, sub.Kind, item.Error)
		}
		results = append(results, item)
	}

	b.publishBatchEvent(ctx, domain.EventBatchCompleted, batchID, agentID, len(results))
	return results, nil
}

func (b *BatchEngines) publishBatchEvent(ctx context.Context, typ domain.EventType, batchID, agentID string, n int) {
	if b.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{"batch_id": batchID, "actions": n})
	b.bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		ActionID:  batchID,
		AgentID:   agentID,
		Payload:   payload,
	})
}
