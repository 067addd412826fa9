package handler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"quorum/internal/domain"
)

// Registry holds the handler for each action kind and implements
// domain.HandlerRegistry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.ActionKind]domain.Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty handler registry. Handlers carrying a
// params schema are wrapped with JSON Schema validation on Register; a
// schema that fails to compile is logged and the handler registered
// unwrapped.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[domain.ActionKind]domain.Handler),
		logger:   logger,
	}
}

// Register adds a handler, erroring on duplicate kinds.
func (r *Registry) Register(h domain.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := h.Kind()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("handler for %q already registered", kind)
	}

	wrapped, err := withSchemaGate(h)
	if err != nil {
		r.logger.Warn("schema gate disabled for handler", "kind", string(kind), "error", err)
	} else {
		h = wrapped
	}

	r.handlers[kind] = h
	return nil
}

// Resolve returns the handler for kind.
func (r *Registry) Resolve(kind domain.ActionKind) (domain.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[kind]
	if !ok {
		return nil, domain.NewDomainError("Registry.Resolve", domain.ErrHandlerNotFound, string(kind))
	}
	return h, nil
}

// Kinds returns the registered kinds in stable order.
func (r *Registry) Kinds() []domain.ActionKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.ActionKind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
