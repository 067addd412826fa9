package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorum/internal/domain"
)

func TestScrubParamsByName(t *testing.T) {
	s := NewScrubber()
	in := domain.Params{
		"path":    "/tmp/x",
		"api_key": "sk-live-12345",
		"nested":  map[string]any{"password": "hunter2", "n": 1},
		"list":    []any{map[string]any{"token": "abc"}},
	}
	out := s.ScrubParams(in)

	assert.Equal(t, "/tmp/x", out["path"])
	assert.Equal(t, "[REDACTED:api_key]", out["api_key"])
	assert.Equal(t, "[REDACTED:password]", out["nested"].(map[string]any)["password"])
	assert.Equal(t, "[REDACTED:token]", out["list"].([]any)[0].(map[string]any)["token"])

	// Input unchanged.
	assert.Equal(t, "sk-live-12345", in["api_key"])
}

func TestScrubRegisteredValues(t *testing.T) {
	s := NewScrubber()
	s.RegisterSecret("db_password", "s3cr3t")

	assert.Equal(t, "dsn=user:[REDACTED:db_password]@host", s.ScrubString("dsn=user:s3cr3t@host"))
	assert.Equal(t, "clean", s.ScrubString("clean"))
}

func TestScrubErrorPreservesSentinels(t *testing.T) {
	s := NewScrubber()
	s.RegisterSecret("api_key", "sk-live-12345")

	orig := domain.NewDomainError("Handler", domain.ErrProviderError, "auth sk-live-12345 rejected")
	scrubbed := s.ScrubError(orig)

	require.Error(t, scrubbed)
	assert.NotContains(t, scrubbed.Error(), "sk-live-12345")
	assert.Contains(t, scrubbed.Error(), "[REDACTED:api_key]")
	assert.ErrorIs(t, scrubbed, domain.ErrProviderError)

	// The original error must not be reachable for unwrapping.
	assert.Nil(t, errors.Unwrap(scrubbed))

	clean := errors.New("nothing sensitive")
	assert.Same(t, clean, s.ScrubError(clean))
	assert.NoError(t, s.ScrubError(nil))
}
