package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"quorum/internal/domain"
)

// MemoryLedger is an in-process budget ledger. All balance mutations
// happen under one mutex, making CheckAndReserve atomic relative to
// concurrent reservations from sibling actions against the same account.
// Agents with no configured budget are unlimited.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]float64
	limited  map[string]bool
	open     map[string]*domain.Reservation
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]float64),
		limited:  make(map[string]bool),
		open:     make(map[string]*domain.Reservation),
	}
}

// SetBudget funds an agent's account, marking it limited.
func (l *MemoryLedger) SetBudget(agentID string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[agentID] = amount
	l.limited[agentID] = true
}

// Balance returns the agent's remaining budget and whether the account
// is limited at all.
func (l *MemoryLedger) Balance(agentID string) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[agentID], l.limited[agentID]
}

// CheckAndReserve debits estimated from the agent's balance, returning
// ErrBudgetExceeded when the balance cannot cover it.
func (l *MemoryLedger) CheckAndReserve(_ context.Context, agentID string, estimated float64) (*domain.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limited[agentID] && l.balances[agentID] < estimated {
		return nil, domain.NewDomainError("Ledger.CheckAndReserve", domain.ErrBudgetExceeded,
			fmt.Sprintf("agent %s: balance %.4f, estimated %.4f", agentID, l.balances[agentID], estimated))
	}
	res := &domain.Reservation{
		ID:      ulid.Make().String(),
		AgentID: agentID,
		Amount:  estimated,
	}
	if l.limited[agentID] {
		l.balances[agentID] -= estimated
	}
	l.open[res.ID] = res
	return res, nil
}

// Commit settles a reservation at its actual cost, crediting back any
// over-reservation. Unknown reservations are a no-op.
func (l *MemoryLedger) Commit(_ context.Context, res *domain.Reservation, actual float64) error {
	if res == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.open[res.ID]; !ok {
		return nil
	}
	delete(l.open, res.ID)
	if l.limited[res.AgentID] && actual < res.Amount {
		l.balances[res.AgentID] += res.Amount - actual
	}
	return nil
}

// Release returns the full reserved amount, used when the action never
// ran.
func (l *MemoryLedger) Release(_ context.Context, res *domain.Reservation) error {
	if res == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.open[res.ID]; !ok {
		return nil
	}
	delete(l.open, res.ID)
	if l.limited[res.AgentID] {
		l.balances[res.AgentID] += res.Amount
	}
	return nil
}
