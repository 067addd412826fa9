package usecase

import (
	"errors"
	"strings"

	"quorum/internal/domain"
)

// Scrubber redacts sensitive values before a result or error leaves the
// Router. Redaction happens at the boundary, after execution, on success
// and failure alike: parameters whose name is sensitive are replaced with
// a marker keyed by that name, and registered secret values are replaced
// wherever they appear inside nested payloads or error messages.
type Scrubber struct {
	names   map[string]bool
	secrets map[string]string // literal value -> logical name
}

// defaultSensitiveNames are parameter names redacted by name alone.
var defaultSensitiveNames = []string{
	"token", "secret", "password", "api_key", "authorization", "credential",
}

// NewScrubber creates a scrubber for the given sensitive parameter
// names. With no names it falls back to the default set.
func NewScrubber(names ...string) *Scrubber {
	if len(names) == 0 {
		names = defaultSensitiveNames
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return &Scrubber{names: set, secrets: make(map[string]string)}
}

// RegisterSecret adds a literal secret value to be replaced with
// "[REDACTED:name]" wherever it appears in outbound strings.
func (s *Scrubber) RegisterSecret(name, value string) {
	if value == "" {
		return
	}
	s.secrets[value] = name
}

// ScrubParams returns a deep copy of params with sensitive entries
// redacted. The input is never mutated.
func (s *Scrubber) ScrubParams(params domain.Params) domain.Params {
	if params == nil {
		return nil
	}
	out := make(domain.Params, len(params))
	for name, value := range params {
		if s.names[strings.ToLower(name)] {
			out[name] = "[REDACTED:" + name + "]"
			continue
		}
		out[name] = s.ScrubValue(value)
	}
	return out
}

// ScrubValue walks an arbitrary decoded-JSON value, redacting sensitive
// map keys and registered secret substrings.
func (s *Scrubber) ScrubValue(value any) any {
	switch v := value.(type) {
	case string:
		return s.ScrubString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			if s.names[strings.ToLower(k)] {
				out[k] = "[REDACTED:" + k + "]"
				continue
			}
			out[k] = s.ScrubValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = s.ScrubValue(elem)
		}
		return out
	case domain.Params:
		return s.ScrubParams(v)
	default:
		return value
	}
}

// ScrubString replaces every registered secret value in text with its
// redaction marker.
func (s *Scrubber) ScrubString(text string) string {
	for value, name := range s.secrets {
		text = strings.ReplaceAll(text, value, "[REDACTED:"+name+"]")
	}
	return text
}

// ScrubError redacts secret values from an error's message. Sentinel
// matching via errors.Is is preserved; the original error is never
// reachable from the returned one.
func (s *Scrubber) ScrubError(err error) error {
	if err == nil {
		return nil
	}
	msg := s.ScrubString(err.Error())
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, orig: err}
}

type redactedError struct {
	msg  string
	orig error
}

func (e *redactedError) Error() string { return e.msg }

// Is delegates sentinel matching to the original error without exposing
// it through an Unwrap chain.
func (e *redactedError) Is(target error) bool { return errors.Is(e.orig, target) }
