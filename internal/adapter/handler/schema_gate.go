package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"quorum/internal/domain"
)

// schemaGate wraps a handler so Execute validates the parameter map
// against the handler's compiled JSON Schema before delegating. The
// core Validator has already run by the time a Router dispatches; the
// gate catches direct invocations that bypass it, such as sub-actions
// fed straight into a handler by tooling.
type schemaGate struct {
	inner    domain.Handler
	compiled *jsonschema.Schema
}

// withSchemaGate compiles the handler's params schema. Handlers without
// a schema pass through unwrapped.
func withSchemaGate(h domain.Handler) (domain.Handler, error) {
	raw := h.ParamsSchema()
	if len(raw) == 0 || string(raw) == "null" {
		return h, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("params.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", h.Kind(), err)
	}
	compiled, err := compiler.Compile("params.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", h.Kind(), err)
	}
	return &schemaGate{inner: h, compiled: compiled}, nil
}

func (g *schemaGate) Kind() domain.ActionKind       { return g.inner.Kind() }
func (g *schemaGate) ParamsSchema() json.RawMessage { return g.inner.ParamsSchema() }

func (g *schemaGate) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	// Round-trip through JSON so the schema sees the same shapes the
	// wire would carry.
	data, err := json.Marshal(inv.Params)
	if err != nil {
		return nil, domain.NewDomainError("SchemaGate", domain.ErrInvalidParamType, err.Error())
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, domain.NewDomainError("SchemaGate", domain.ErrInvalidParamType, err.Error())
	}
	if err := g.compiled.Validate(v); err != nil {
		return nil, domain.NewDomainError("SchemaGate", domain.ErrInvalidParamType,
			fmt.Sprintf("%s: %v", g.inner.Kind(), err))
	}
	return g.inner.Execute(ctx, inv)
}
