// Package usecase contains the action-execution core: parameter
// validation, batch engines, capability and budget checks, and the
// per-action Router that supervises one action from proposal to
// terminal outcome.
package usecase

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/google/uuid"

	"quorum/internal/domain"
	"quorum/internal/schema"
)

// RawAction is an unvalidated action as produced upstream. Kind and
// Params are pointers so that an absent field is distinguishable from an
// empty one.
type RawAction struct {
	Kind      *string        `json:"action,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	HasParams bool           `json:"-"`
	Reasoning string         `json:"reasoning,omitempty"`
}

// Validator checks raw actions against the schema registry and returns
// normalized parameter maps. Validation is pure: the same input always
// yields the same result, and unknown kind strings never create a new
// schema entry or any other side effect.
type Validator struct {
	schemas *schema.Registry
}

// NewValidator creates a Validator over the given registry.
func NewValidator(schemas *schema.Registry) *Validator {
	return &Validator{schemas: schemas}
}

// uuidV4Pattern matches the UUID v4 textual grammar (version nibble 4,
// variant nibble 8/9/a/b).
var uuidV4Pattern = regexp.MustCompile(
	`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// ValidateAction validates raw against the schema registry and returns
// the agreed action with its normalized parameter map. Each failure mode
// is a distinct sentinel; the first failing stage wins.
func (v *Validator) ValidateAction(raw RawAction) (*domain.Action, error) {
	if raw.Kind == nil {
		return nil, domain.NewDomainError("Validator", domain.ErrMissingActionField, "")
	}
	if raw.Params == nil && !raw.HasParams {
		return nil, domain.NewDomainError("Validator", domain.ErrMissingParamsField, "")
	}

	kind := domain.ActionKind(*raw.Kind)
	s, err := v.schemas.Get(kind)
	if err != nil {
		// The unknown string is echoed in the error but recorded nowhere:
		// unrecognized input must not grow any table.
		return nil, domain.NewDomainError("Validator", domain.ErrUnknownAction, *raw.Kind)
	}

	params := raw.Params
	if params == nil {
		params = domain.Params{}
	}

	for name := range params {
		if !s.HasParam(name) {
			return nil, domain.NewDomainError("Validator", domain.ErrUnknownParameter,
				fmt.Sprintf("%s.%s", kind, name))
		}
	}

	for _, name := range s.Required {
		if _, ok := params[name]; !ok {
			return nil, domain.NewDomainError("Validator", domain.ErrMissingRequiredParam,
				fmt.Sprintf("%s.%s", kind, name))
		}
	}

	normalized := make(domain.Params, len(params))
	for name, value := range params {
		nv, err := normalizeValue(kind, name, value, s.Types[name])
		if err != nil {
			return nil, err
		}
		normalized[name] = nv
	}

	if err := checkXorGroups(kind, s.XorGroups, normalized); err != nil {
		return nil, err
	}

	return &domain.Action{Kind: kind, Params: normalized, Reasoning: raw.Reasoning}, nil
}

// normalizeValue type-checks value against spec and returns its
// normalized form.
func normalizeValue(kind domain.ActionKind, name string, value any, spec domain.TypeSpec) (any, error) {
	where := fmt.Sprintf("%s.%s", kind, name)

	switch spec.Kind {
	case domain.TypeString:
		str, ok := value.(string)
		if !ok {
			return nil, typeError(where, "string", value)
		}
		return str, checkFormat(where, str, spec.Format)

	case domain.TypeInt:
		f, ok := asNumber(value)
		if !ok || f != float64(int64(f)) {
			return nil, typeError(where, "integer", value)
		}
		return f, nil

	case domain.TypeFloat:
		f, ok := asNumber(value)
		if !ok {
			return nil, typeError(where, "number", value)
		}
		return f, nil

	case domain.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, typeError(where, "boolean", value)
		}
		return b, nil

	case domain.TypeEnum:
		str, ok := value.(string)
		if !ok {
			return nil, typeError(where, "string", value)
		}
		for _, allowed := range spec.Enum {
			if str == allowed {
				return str, nil
			}
		}
		return nil, domain.NewDomainError("Validator", domain.ErrInvalidEnumValue,
			fmt.Sprintf("%s: %q", where, str))

	case domain.TypeList:
		// An empty map where a list is declared is a common malformed
		// shape from upstream producers; coerce it to an empty list.
		if m, ok := value.(map[string]any); ok && len(m) == 0 {
			return []any{}, nil
		}
		list, ok := value.([]any)
		if !ok {
			return nil, typeError(where, "list", value)
		}
		if spec.Elem != nil {
			out := make([]any, len(list))
			for i, e := range list {
				ne, err := normalizeValue(kind, name, e, *spec.Elem)
				if err != nil {
					return nil, err
				}
				out[i] = ne
			}
			return out, nil
		}
		return list, nil

	case domain.TypeMap:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, typeError(where, "map", value)
		}
		return m, nil

	case domain.TypeUnion:
		for _, member := range spec.Members {
			if nv, err := normalizeValue(kind, name, value, member); err == nil {
				return nv, nil
			}
		}
		return nil, typeError(where, "union member", value)
	}

	return nil, typeError(where, "value", value)
}

func typeError(where, want string, got any) error {
	return domain.NewDomainError("Validator", domain.ErrInvalidParamType,
		fmt.Sprintf("%s: want %s, got %T", where, want, got))
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// checkFormat enforces string format constraints: URL-typed strings must
// parse as absolute URLs, UUID-typed strings must match the v4 grammar.
func checkFormat(where, value string, format domain.Format) error {
	switch format {
	case domain.FormatURL:
		u, err := url.Parse(value)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return domain.NewDomainError("Validator", domain.ErrInvalidURLFormat,
				fmt.Sprintf("%s: %q", where, value))
		}
	case domain.FormatUUID:
		if !uuidV4Pattern.MatchString(value) {
			return domain.NewDomainError("Validator", domain.ErrInvalidUUIDFormat,
				fmt.Sprintf("%s: %q", where, value))
		}
		if _, err := uuid.Parse(value); err != nil {
			return domain.NewDomainError("Validator", domain.ErrInvalidUUIDFormat,
				fmt.Sprintf("%s: %q", where, value))
		}
	}
	return nil
}

// checkXorGroups enforces that exactly one member of each declared
// mutually-exclusive group is present.
func checkXorGroups(kind domain.ActionKind, groups [][]string, params domain.Params) error {
	for _, group := range groups {
		present := 0
		for _, name := range group {
			if _, ok := params[name]; ok {
				present++
			}
		}
		switch {
		case present == 0:
			return domain.NewDomainError("Validator", domain.ErrXorParamsRequired,
				fmt.Sprintf("%s: one of %v", kind, group))
		case present > 1:
			return domain.NewDomainError("Validator", domain.ErrXorParamsConflict,
				fmt.Sprintf("%s: only one of %v", kind, group))
		}
	}
	return nil
}
