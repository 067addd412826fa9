package usecase

import (
	"context"
	"time"

	"quorum/internal/domain"
)

// CoordinatorConfig carries the per-action Router tuning the
// coordinator applies to every submission.
type CoordinatorConfig struct {
	ConsensusTimeout time.Duration
	ActionTimeout    time.Duration
	Retry            RetryPolicy
}

// Coordinator runs actions end to end for callers that already hold all
// of an action's proposals. It spawns one Router per submission, feeds
// it the proposals, and waits for the single terminal outcome.
type Coordinator struct {
	deps RouterDeps
	cfg  CoordinatorConfig
}

// NewCoordinator creates a coordinator over the shared Router
// collaborators.
func NewCoordinator(deps RouterDeps, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{deps: deps, cfg: cfg}
}

// Submit executes one action with the supplied proposals and returns its
// outcome. All proposals must share a kind; the set's size becomes the
// Router's expected proposal count. Cancelling ctx abandons the action:
// the Router self-terminates and Submit returns ctx's error.
func (c *Coordinator) Submit(ctx context.Context, agentID string, groups []string, cost float64, proposals []domain.Proposal) (domain.Outcome, error) {
	if len(proposals) == 0 {
		return domain.Outcome{}, domain.NewDomainError("Coordinator.submit", domain.ErrNoValues, "no proposals")
	}
	kind := proposals[0].Kind

	mailbox := make(chan domain.Outcome, 1)
	agent := domain.AgentRef{
		ID:      agentID,
		Done:    ctx.Done(),
		Mailbox: mailbox,
	}
	cfg := RouterConfig{
		Expected:         len(proposals),
		ConsensusTimeout: c.cfg.ConsensusTimeout,
		ActionTimeout:    c.cfg.ActionTimeout,
		EstimatedCost:    cost,
		CapabilityGroups: groups,
		Retry:            c.cfg.Retry,
	}

	r := StartRouter(ctx, c.deps, cfg, kind, agent)
	for _, p := range proposals {
		r.Propose(p)
	}

	select {
	case o := <-mailbox:
		return o, nil
	case <-r.Done():
		// Terminated: either the outcome is already buffered or the
		// action was cancelled without one.
		select {
		case o := <-mailbox:
			return o, nil
		default:
		}
		if err := ctx.Err(); err != nil {
			return domain.Outcome{}, err
		}
		return domain.Outcome{}, domain.NewDomainError("Coordinator.submit", domain.ErrAgentGone, r.ActionID())
	}
}
