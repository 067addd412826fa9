package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"quorum/internal/domain"
	"quorum/internal/infra/config"
	"quorum/internal/usecase"
)

const maxRequestLine = 4 << 20

// submission is one stdin request: the proposals independently sampled
// for a single action, plus the caller's identity and grants.
type submission struct {
	AgentID   string            `json:"agent_id"`
	Groups    []string          `json:"groups,omitempty"`
	Cost      float64           `json:"cost,omitempty"`
	Proposals []domain.Proposal `json:"proposals"`
}

// verdict is the stdout response for one submission.
type verdict struct {
	ActionID string           `json:"action_id,omitempty"`
	OK       bool             `json:"ok"`
	Value    any              `json:"value,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     domain.ErrorCode `json:"code,omitempty"`
}

// serve reads JSON-line submissions from stdin until EOF or signal.
// Submissions run concurrently, one Router each; responses are written
// in completion order.
func serve(ctx context.Context, coord *usecase.Coordinator, cfg *config.Config, log *slog.Logger) error {
	var writeMu sync.Mutex
	out := json.NewEncoder(os.Stdout)
	respond := func(v verdict) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := out.Encode(v); err != nil {
			log.Error("write response", "error", err)
		}
	}

	var wg sync.WaitGroup
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), maxRequestLine)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var sub submission
		if err := json.Unmarshal(line, &sub); err != nil {
			respond(verdict{Error: fmt.Sprintf("malformed submission: %v", err), Code: domain.CodeInvalidInput})
			continue
		}
		if sub.AgentID == "" {
			respond(verdict{Error: "agent_id is required", Code: domain.CodeInvalidInput})
			continue
		}
		if len(sub.Groups) == 0 {
			sub.Groups = []string{"observe"}
		}
		// The supplied set is authoritative: duplicating samples to
		// reach the configured count would bias the merge.
		if len(sub.Proposals) < cfg.Consensus.Proposals {
			log.Warn("submission below configured proposal count",
				"agent_id", sub.AgentID,
				"got", len(sub.Proposals),
				"want", cfg.Consensus.Proposals,
			)
		}

		wg.Add(1)
		go func(sub submission) {
			defer wg.Done()
			outcome, err := coord.Submit(ctx, sub.AgentID, sub.Groups, sub.Cost, sub.Proposals)
			if err != nil {
				respond(verdict{Error: err.Error(), Code: domain.ErrorCodeOf(err)})
				return
			}
			if outcome.Err != nil {
				// A failed sync batch still carries the results collected
				// before it stopped.
				respond(verdict{
					ActionID: outcome.ActionID,
					Value:    outcome.Value,
					Error:    outcome.Err.Error(),
					Code:     domain.ErrorCodeOf(outcome.Err),
				})
				return
			}
			respond(verdict{ActionID: outcome.ActionID, OK: true, Value: outcome.Value})
		}(sub)
	}

	wg.Wait()
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	log.Info("quorumd stopped")
	return nil
}
