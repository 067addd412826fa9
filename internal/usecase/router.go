package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"quorum/internal/consensus"
	"quorum/internal/domain"
	"quorum/internal/infra/tracer"
	"quorum/internal/schema"
)

// routerPhase names the Router's current state for logs and spans.
type routerPhase string

const (
	phaseInitializing        routerPhase = "initializing"
	phaseAwaitingConsensus   routerPhase = "awaiting_consensus"
	phaseValidating          routerPhase = "validating"
	phaseCheckingPermissions routerPhase = "checking_permissions"
	phaseCheckingBudget      routerPhase = "checking_budget"
	phaseDispatching         routerPhase = "dispatching"
	phaseCompleting          routerPhase = "completing"
	phaseFailing             routerPhase = "failing"
	phaseTerminated          routerPhase = "terminated"
)

// RouterConfig tunes one Router instance.
type RouterConfig struct {
	// Expected is the number of proposals to gather before merging.
	// Values below 1 are treated as 1 (a single proposal is trivially
	// agreed).
	Expected int
	// ConsensusTimeout bounds the wait for proposals.
	ConsensusTimeout time.Duration
	// ActionTimeout bounds the wait for an asynchronous handler's
	// deferred completion.
	ActionTimeout time.Duration
	// EstimatedCost is reserved against the agent's budget before
	// dispatch. Zero means the action bears no cost and skips the
	// ledger entirely.
	EstimatedCost float64
	// CapabilityGroups are the permission bundles granted to this
	// action's caller.
	CapabilityGroups []string
	// Retry governs redispatch of transient handler failures.
	Retry RetryPolicy
}

// RouterDeps are the collaborators a Router consults. Schemas, Merger,
// Validator, Handlers, and Permissions are required; Ledger, Bus, Audit,
// and Scrubber are optional.
type RouterDeps struct {
	Schemas     *schema.Registry
	Merger      *consensus.Merger
	Validator   *Validator
	Handlers    domain.HandlerRegistry
	Permissions domain.PermissionChecker
	Ledger      domain.Ledger
	Bus         domain.EventBus
	Audit       domain.AuditStore
	Scrubber    *Scrubber
	Logger      *slog.Logger
}

// Router supervises exactly one action execution. It gathers the
// expected proposals, merges them into one agreed parameter map,
// validates, checks permissions and budget, dispatches to the kind's
// handler, delivers exactly one Outcome to the owning agent, and
// terminates. Many Routers run concurrently; they share no state and
// coordinate only through the budget ledger.
//
// Death of the owning agent at either suspension point (gathering
// proposals, awaiting an asynchronous completion) cancels the action:
// the Router terminates without delivering an Outcome.
type Router struct {
	actionID string
	kind     domain.ActionKind
	agent    domain.AgentRef
	deps     RouterDeps
	cfg      RouterConfig
	logger   *slog.Logger

	proposals chan domain.Proposal
	done      chan struct{}
	deliver   sync.Once
}

// StartRouter spawns a Router for one action instance and returns
// immediately. The Router runs until it reaches its terminal state;
// Done is closed at that point.
func StartRouter(ctx context.Context, deps RouterDeps, cfg RouterConfig, kind domain.ActionKind, agent domain.AgentRef) *Router {
	if cfg.Expected < 1 {
		cfg.Expected = 1
	}
	if cfg.ConsensusTimeout <= 0 {
		cfg.ConsensusTimeout = 30 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 5 * time.Minute
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		actionID:  ulid.Make().String(),
		kind:      kind,
		agent:     agent,
		deps:      deps,
		cfg:       cfg,
		proposals: make(chan domain.Proposal, cfg.Expected),
		done:      make(chan struct{}),
	}
	r.logger = logger.With("action_id", r.actionID, "kind", string(kind), "agent_id", agent.ID)

	go r.run(ctx)
	return r
}

// ActionID returns the unique ID assigned to this execution.
func (r *Router) ActionID() string { return r.actionID }

// Done is closed when the Router has terminated.
func (r *Router) Done() <-chan struct{} { return r.done }

// Propose delivers one sampled parameter map to the Router. Proposals
// beyond the expected count, or arriving after termination, are dropped.
func (r *Router) Propose(p domain.Proposal) {
	select {
	case r.proposals <- p:
	case <-r.done:
	default:
	}
}

// run drives the state machine from Initializing to Terminated. Each
// phase either advances or routes to exactly one terminal path.
func (r *Router) run(ctx context.Context) {
	defer close(r.done)

	ctx, span := tracer.StartSpan(ctx, "router.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("action.id", r.actionID),
		attribute.String("action.kind", string(r.kind)),
		attribute.String("agent.id", r.agent.ID),
	)

	started := time.Now()
	r.logPhase(phaseInitializing)

	// AwaitingConsensus.
	r.logPhase(phaseAwaitingConsensus)
	samples, err := r.gatherProposals(ctx)
	if err != nil {
		if r.agentGone(err) {
			r.cancel(ctx, started, nil)
			return
		}
		r.publish(ctx, domain.EventConsensusFailed, map[string]any{"error": err.Error()})
		r.fail(ctx, started, nil, nil, err)
		return
	}

	merged, reasoning, err := r.mergeConsensus(ctx, samples)
	if err != nil {
		r.publish(ctx, domain.EventConsensusFailed, map[string]any{"error": err.Error()})
		r.fail(ctx, started, nil, nil, err)
		return
	}
	r.publish(ctx, domain.EventConsensusReached, map[string]any{"proposals": len(samples)})

	// Validating.
	r.logPhase(phaseValidating)
	kindStr := string(r.kind)
	act, err := r.deps.Validator.ValidateAction(RawAction{
		Kind:      &kindStr,
		Params:    merged,
		HasParams: true,
		Reasoning: reasoning,
	})
	if err != nil {
		r.fail(ctx, started, merged, nil, err)
		return
	}

	// CheckingPermissions.
	r.logPhase(phaseCheckingPermissions)
	if !r.deps.Permissions.Allowed(r.agent.ID, r.kind, r.cfg.CapabilityGroups) {
		r.fail(ctx, started, act.Params, nil, domain.NewDomainError("Router.permissions",
			domain.ErrActionNotAllowed, fmt.Sprintf("%s not covered by granted groups", r.kind)))
		return
	}

	// CheckingBudget.
	r.logPhase(phaseCheckingBudget)
	var reservation *domain.Reservation
	if r.cfg.EstimatedCost > 0 && r.deps.Ledger != nil {
		reservation, err = r.deps.Ledger.CheckAndReserve(ctx, r.agent.ID, r.cfg.EstimatedCost)
		if err != nil {
			r.fail(ctx, started, act.Params, nil, err)
			return
		}
	}

	// Dispatching.
	r.logPhase(phaseDispatching)
	r.publish(ctx, domain.EventActionStarted, nil)
	value, err := r.dispatch(ctx, act)

	if reservation != nil {
		if err != nil {
			if relErr := r.deps.Ledger.Release(ctx, reservation); relErr != nil {
				r.logger.Warn("reservation release failed", "error", relErr)
			}
		} else if comErr := r.deps.Ledger.Commit(ctx, reservation, r.cfg.EstimatedCost); comErr != nil {
			r.logger.Warn("reservation commit failed", "error", comErr)
		}
	}

	if err != nil && r.agentGone(err) {
		r.cancel(ctx, started, act.Params)
		return
	}
	if err != nil {
		r.fail(ctx, started, act.Params, value, err)
		return
	}
	r.complete(ctx, started, act.Params, value)
}

// gatherProposals blocks until the expected number of proposals arrive,
// the consensus timeout fires, or the owning agent dies.
func (r *Router) gatherProposals(ctx context.Context) ([]domain.Proposal, error) {
	timer := time.NewTimer(r.cfg.ConsensusTimeout)
	defer timer.Stop()

	samples := make([]domain.Proposal, 0, r.cfg.Expected)
	for len(samples) < r.cfg.Expected {
		select {
		case p := <-r.proposals:
			samples = append(samples, p)
		case <-timer.C:
			return nil, domain.NewDomainError("Router.consensus", domain.ErrConsensusTimeout,
				fmt.Sprintf("got %d of %d proposals", len(samples), r.cfg.Expected))
		case <-r.agent.Done:
			return nil, domain.WrapOp("Router.consensus", domain.ErrAgentGone)
		case <-ctx.Done():
			return nil, domain.WrapOp("Router.consensus", domain.ErrAgentGone)
		}
	}
	return samples, nil
}

// mergeConsensus reduces the gathered samples to one agreed parameter
// map. A single sample is trivially agreed. Any supplied parameter that
// fails consensus fails the whole action: no parameter is ever committed
// with a non-agreed value.
func (r *Router) mergeConsensus(ctx context.Context, samples []domain.Proposal) (domain.Params, string, error) {
	reasoning := ""
	for _, s := range samples {
		if s.Reasoning != "" {
			reasoning = s.Reasoning
			break
		}
	}
	if len(samples) == 1 {
		return samples[0].Params, reasoning, nil
	}

	sch, err := r.deps.Schemas.Get(r.kind)
	if err != nil {
		return nil, "", err
	}

	cost := &domain.CostAccumulator{}
	opts := consensus.Options{Cost: cost}
	merged := domain.Params{}

	names := make([]string, 0, len(sch.Required)+len(sch.Optional))
	names = append(names, sch.Required...)
	names = append(names, sch.Optional...)

	// A parameter the schema does not declare fails the action even when
	// every proposal agrees on it. Merging only declared names would
	// silently discard it, and the single-proposal path already rejects
	// it through the validator.
	declared := make(map[string]bool, len(names))
	for _, name := range names {
		declared[name] = true
	}
	for _, s := range samples {
		for name := range s.Params {
			if !declared[name] {
				return nil, "", domain.NewDomainError("Router.consensus",
					domain.ErrUnknownParameter, fmt.Sprintf("%s.%s", r.kind, name))
			}
		}
	}

	for _, name := range names {
		values := collectParam(samples, name)
		if len(values) == 0 {
			continue // absence of a required param is the validator's report
		}
		v, err := r.deps.Merger.MergeParams(ctx, r.kind, name, values, opts)
		if err != nil {
			return nil, "", domain.WrapOp(fmt.Sprintf("Router.consensus %s", name), err)
		}
		merged[name] = v
	}

	if cost.Calls() > 0 {
		r.logger.Debug("consensus embedding cost",
			"calls", cost.Calls(), "texts", cost.Texts())
	}
	return merged, reasoning, nil
}

func collectParam(samples []domain.Proposal, name string) []any {
	values := make([]any, 0, len(samples))
	for _, s := range samples {
		if v, ok := s.Params[name]; ok {
			values = append(values, v)
		}
	}
	return values
}

// dispatch resolves the handler and invokes it, retrying transient
// failures. An asynchronous handler returns an Ack; dispatch then blocks
// until the deferred completion, the action timeout, or agent death.
func (r *Router) dispatch(ctx context.Context, act *domain.Action) (any, error) {
	h, err := r.deps.Handlers.Resolve(act.Kind)
	if err != nil {
		return nil, err
	}

	completion := make(chan domain.Completion, 1)
	inv := domain.Invocation{
		ActionID: r.actionID,
		AgentID:  r.agent.ID,
		Params:   act.Params,
		Complete: func(c domain.Completion) {
			select {
			case completion <- c:
			default:
			}
		},
	}

	value, err := r.cfg.Retry.Do(ctx, func() (any, error) {
		return r.execute(ctx, h, inv)
	})
	if err != nil {
		// A failing handler may still carry a value (a stopped sync
		// batch returns the results collected before the failure).
		return value, err
	}

	ack, ok := value.(domain.Ack)
	if !ok || !ack.Async {
		return value, nil
	}

	// Async dispatch: the Ack is immediate, the result arrives later.
	timer := time.NewTimer(r.cfg.ActionTimeout)
	defer timer.Stop()
	select {
	case c := <-completion:
		return c.Value, c.Err
	case <-timer.C:
		return nil, domain.NewDomainError("Router.dispatch", domain.ErrActionTimeout,
			string(act.Kind))
	case <-r.agent.Done:
		return nil, domain.WrapOp("Router.dispatch", domain.ErrAgentGone)
	case <-ctx.Done():
		return nil, domain.WrapOp("Router.dispatch", domain.ErrAgentGone)
	}
}

// execute invokes the handler with panic containment: a crashing handler
// becomes a structured failure, never a crashed Router.
func (r *Router) execute(ctx context.Context, h domain.Handler, inv domain.Invocation) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panicked", "panic", p)
			value = nil
			err = domain.NewDomainError("Router.dispatch", domain.ErrProviderError,
				fmt.Sprintf("handler panic: %v", p))
		}
	}()
	return h.Execute(ctx, inv)
}

// complete is the success terminal: Completing then Terminated.
func (r *Router) complete(ctx context.Context, started time.Time, params domain.Params, value any) {
	r.logPhase(phaseCompleting)
	value = r.scrubValue(value)
	r.publish(ctx, domain.EventActionCompleted, map[string]any{
		"duration_ms": time.Since(started).Milliseconds(),
	})
	r.audit(ctx, started, params, "ok", "")
	r.sendOutcome(domain.Outcome{ActionID: r.actionID, Kind: r.kind, Value: value})
	r.terminate(ctx)
}

// fail is the failure terminal: Failing then Terminated. Exactly one
// error message reaches the owning agent. A non-nil value rides along
// with the error so partial work, such as a stopped sync batch's
// collected results, survives to the owner.
func (r *Router) fail(ctx context.Context, started time.Time, params domain.Params, value any, err error) {
	r.logPhase(phaseFailing)
	err = r.scrubErr(err)
	value = r.scrubValue(value)
	r.logger.Warn("action failed", "error", err, "code", string(domain.ErrorCodeOf(err)))
	r.publish(ctx, domain.EventActionError, map[string]any{
		"error": err.Error(),
		"code":  string(domain.ErrorCodeOf(err)),
	})
	r.audit(ctx, started, params, "error", err.Error())
	r.sendOutcome(domain.Outcome{ActionID: r.actionID, Kind: r.kind, Value: value, Err: err})
	r.terminate(ctx)
}

// cancel terminates after owner death: no Outcome is delivered, the
// action is simply abandoned.
func (r *Router) cancel(ctx context.Context, started time.Time, params domain.Params) {
	r.logger.Info("owning agent gone, cancelling action")
	r.audit(ctx, started, params, "cancelled", "")
	r.terminate(ctx)
}

func (r *Router) terminate(ctx context.Context) {
	r.publish(ctx, domain.EventRouterTerminated, nil)
	r.logPhase(phaseTerminated)
}

// sendOutcome delivers the terminal message to the owning agent's
// mailbox at most once. The send is abandoned if the agent dies first.
func (r *Router) sendOutcome(o domain.Outcome) {
	r.deliver.Do(func() {
		select {
		case r.agent.Mailbox <- o:
		case <-r.agent.Done:
		}
	})
}

func (r *Router) scrubValue(value any) any {
	if r.deps.Scrubber == nil {
		return value
	}
	return r.deps.Scrubber.ScrubValue(value)
}

func (r *Router) scrubErr(err error) error {
	if r.deps.Scrubber == nil {
		return err
	}
	return r.deps.Scrubber.ScrubError(err)
}

func (r *Router) scrubParams(params domain.Params) domain.Params {
	if r.deps.Scrubber == nil {
		return params
	}
	return r.deps.Scrubber.ScrubParams(params)
}

func (r *Router) agentGone(err error) bool {
	return errors.Is(err, domain.ErrAgentGone) || errors.Is(err, context.Canceled)
}

func (r *Router) publish(ctx context.Context, typ domain.EventType, fields map[string]any) {
	if r.deps.Bus == nil {
		return
	}
	var payload json.RawMessage
	if fields != nil {
		payload, _ = json.Marshal(fields)
	}
	r.deps.Bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		ActionID:  r.actionID,
		AgentID:   r.agent.ID,
		Kind:      r.kind,
		Payload:   payload,
	})
}

// audit records the terminal outcome. Write failures are logged, never
// surfaced into the action result.
func (r *Router) audit(ctx context.Context, started time.Time, params domain.Params, outcome, detail string) {
	if r.deps.Audit == nil {
		return
	}
	rec := domain.AuditRecord{
		ActionID:   r.actionID,
		AgentID:    r.agent.ID,
		Kind:       r.kind,
		Outcome:    outcome,
		Detail:     detail,
		Params:     r.scrubParams(params),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := r.deps.Audit.Record(ctx, rec); err != nil {
		r.logger.Warn("audit write failed", "error", err)
	}
}

func (r *Router) logPhase(phase routerPhase) {
	r.logger.Debug("router phase", "phase", string(phase))
}
