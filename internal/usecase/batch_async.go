package usecase

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"quorum/internal/domain"
	"quorum/internal/schema"
)

// RunAsync validates spec against the broad eligibility set, fans out
// every sub-action concurrently, and returns an acknowledgement
// immediately. The full ordered result list, every element tagged ok or
// error with none discarded, is delivered later through complete.
func (b *BatchEngines) RunAsync(ctx context.Context, agentID string, spec domain.BatchSpec, complete func(domain.Completion)) (domain.Ack, error) {
	if err := b.validateBatch(spec, schema.AsyncBatchable); err != nil {
		return domain.Ack{}, err
	}

	batchID := ulid.Make().String()
	b.publishBatchEvent(ctx, domain.EventBatchStarted, batchID, agentID, len(spec))

	results := make([]domain.BatchItemResult, len(spec))
	var wg sync.WaitGroup
	for i, sub := range spec {
		wg.Add(1)
		go func(idx int, s domain.SubAction) {
			defer wg.Done()
			results[idx] = b.runSub(ctx, agentID, batchID, idx, s)
		}(i, sub)
	}

	go func() {
		wg.Wait()
		b.publishBatchEvent(ctx, domain.EventBatchCompleted, batchID, agentID, len(results))
		if complete != nil {
			complete(domain.Completion{ActionID: batchID, Value: results})
		}
	}()

	return domain.Ack{
		Async:   true,
		BatchID: batchID,
		Status:  "running",
		Started: len(spec),
	}, nil
}
