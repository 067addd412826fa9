package domain

import "context"

// Reservation holds budget set aside for one action before dispatch.
type Reservation struct {
	ID      string
	AgentID string
	Amount  float64
}

// Ledger is the budget service consulted before dispatching cost-bearing
// actions. Implementations must make CheckAndReserve atomic relative to
// concurrent reservations against the same account: two sibling actions
// under one budget envelope may check-and-reserve at the same time.
type Ledger interface {
	// CheckAndReserve debits estimated from the agent's remaining budget,
	// returning ErrBudgetExceeded if the balance cannot cover it.
	CheckAndReserve(ctx context.Context, agentID string, estimated float64) (*Reservation, error)
	// Commit settles a reservation at its actual cost, crediting back any
	// over-reservation.
	Commit(ctx context.Context, res *Reservation, actual float64) error
	// Release returns the full reserved amount, used when the action
	// never ran.
	Release(ctx context.Context, res *Reservation) error
}

// PermissionChecker decides whether a caller may execute an action kind
// given its granted capability groups.
type PermissionChecker interface {
	Allowed(agentID string, kind ActionKind, groups []string) bool
}
