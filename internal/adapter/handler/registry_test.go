package handler

import (
	"context"
	"errors"
	"testing"

	"quorum/internal/domain"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(testLogger())
	orient := NewOrientHandler(mustSchema(t, domain.ActionOrient), testLogger())
	if err := reg.Register(orient); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, err := reg.Resolve(domain.ActionOrient)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if h.Kind() != domain.ActionOrient {
		t.Fatalf("resolved kind = %s", h.Kind())
	}
}

func TestRegistryDuplicateKind(t *testing.T) {
	reg := NewRegistry(testLogger())
	sch := mustSchema(t, domain.ActionOrient)
	if err := reg.Register(NewOrientHandler(sch, testLogger())); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(NewOrientHandler(sch, testLogger())); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	reg := NewRegistry(testLogger())
	_, err := reg.Resolve(domain.ActionWebFetch)
	if !errors.Is(err, domain.ErrHandlerNotFound) {
		t.Fatalf("err = %v, want ErrHandlerNotFound", err)
	}
}

func TestRegistryKindsSorted(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(NewTodoHandler(mustSchema(t, domain.ActionTodo), testLogger()))
	reg.Register(NewOrientHandler(mustSchema(t, domain.ActionOrient), testLogger()))

	kinds := reg.Kinds()
	if len(kinds) != 2 || kinds[0] != domain.ActionOrient || kinds[1] != domain.ActionTodo {
		t.Fatalf("kinds = %v", kinds)
	}
}

// The registry wraps handlers with a JSON Schema gate compiled from the
// handler's declared params schema, so malformed params are rejected
// before the handler body runs.
func TestSchemaGateRejectsBadParams(t *testing.T) {
	reg := NewRegistry(testLogger())
	if err := reg.Register(NewOrientHandler(mustSchema(t, domain.ActionOrient), testLogger())); err != nil {
		t.Fatalf("register: %v", err)
	}
	h, err := reg.Resolve(domain.ActionOrient)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	cases := []struct {
		name   string
		params domain.Params
	}{
		{"wrong type", domain.Params{"focus": 42}},
		{"unknown property", domain.Params{"focus": "triage", "bogus": true}},
		{"missing required", domain.Params{"horizon": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), invocation("agent-1", tc.params))
			if !errors.Is(err, domain.ErrInvalidParamType) {
				t.Fatalf("err = %v, want ErrInvalidParamType", err)
			}
		})
	}
}

func TestSchemaGatePassesValidParams(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(NewOrientHandler(mustSchema(t, domain.ActionOrient), testLogger()))
	h, _ := reg.Resolve(domain.ActionOrient)

	value, err := h.Execute(context.Background(),
		invocation("agent-1", domain.Params{"focus": "triage", "horizon": "short"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	state, ok := value.(Orientation)
	if !ok {
		t.Fatalf("value = %T", value)
	}
	if state.Focus != "triage" || state.Horizon != "short" {
		t.Fatalf("state = %+v", state)
	}
}
