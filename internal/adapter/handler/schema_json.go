package handler

import (
	"encoding/json"

	"quorum/internal/domain"
)

// ParamsSchemaJSON derives a JSON Schema document from an action's
// declared parameter contract. XOR groups are not expressible here and
// stay the Validator's job; the schema covers names, types, and enums.
func ParamsSchemaJSON(sch domain.ActionSchema) json.RawMessage {
	props := make(map[string]any, len(sch.Types))
	for name, spec := range sch.Types {
		props[name] = typeSchema(spec)
	}
	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(sch.Required) > 0 {
		doc["required"] = sch.Required
	}
	data, _ := json.Marshal(doc)
	return data
}

func typeSchema(spec domain.TypeSpec) map[string]any {
	switch spec.Kind {
	case domain.TypeString:
		m := map[string]any{"type": "string"}
		switch spec.Format {
		case domain.FormatURL:
			m["format"] = "uri"
		case domain.FormatUUID:
			m["format"] = "uuid"
		}
		return m
	case domain.TypeInt:
		return map[string]any{"type": "integer"}
	case domain.TypeFloat:
		return map[string]any{"type": "number"}
	case domain.TypeBool:
		return map[string]any{"type": "boolean"}
	case domain.TypeEnum:
		return map[string]any{"type": "string", "enum": spec.Enum}
	case domain.TypeList:
		m := map[string]any{"type": "array"}
		if spec.Elem != nil {
			m["items"] = typeSchema(*spec.Elem)
		}
		return m
	case domain.TypeMap:
		return map[string]any{"type": "object"}
	case domain.TypeUnion:
		members := make([]any, len(spec.Members))
		for i, member := range spec.Members {
			members[i] = typeSchema(member)
		}
		return map[string]any{"oneOf": members}
	}
	return map[string]any{}
}
