package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("openai")
	require.NoError(t, err)
	assert.Equal(t, KindOpenAI, k)

	k, err = ParseKind("anthropic")
	require.NoError(t, err)
	assert.Equal(t, KindAnthropic, k)
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := ParseKind("groq")
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "provider", cfgErr.Setting)
	assert.Equal(t, "groq", cfgErr.Value)
	assert.ElementsMatch(t, []string{"openai", "anthropic"}, cfgErr.Supported)
}

func TestKind_DisplayName(t *testing.T) {
	assert.Equal(t, "OpenAI ChatGPT", KindOpenAI.DisplayName())
	assert.Equal(t, "Anthropic Claude", KindAnthropic.DisplayName())
	assert.Equal(t, "Unknown Provider", Kind("groq").DisplayName())
}

func TestNewResolver_MissingCredential(t *testing.T) {
	_, err := NewResolver(Descriptor{Kind: KindAnthropic, ModelID: "claude-sonnet-4-20250514"})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "anthropic_api_key", cfgErr.Setting)
}

func TestNewResolver_InvalidKind(t *testing.T) {
	_, err := NewResolver(Descriptor{Kind: "groq", APIKey: "k"})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "provider", cfgErr.Setting)
}

func TestResolver_Resolve(t *testing.T) {
	r, err := NewResolver(Descriptor{Kind: KindOpenAI, ModelID: "gpt-4o-mini", APIKey: "test-key"})
	require.NoError(t, err)

	m, err := r.Resolve()
	require.NoError(t, err)
	info := m.Info()
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, "gpt-4o-mini", info.Name)

	// Per-call override switches provider without touching agent logic.
	r2, err := NewResolver(Descriptor{Kind: KindAnthropic, ModelID: "claude-sonnet-4-20250514", APIKey: "test-key"})
	require.NoError(t, err)
	m2, err := r2.Resolve(func(o *ResolveOptions) { o.ModelID = "claude-3-5-haiku-latest" })
	require.NoError(t, err)
	assert.Equal(t, "anthropic", m2.Info().Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", m2.Info().Name)
}

func TestResolver_Resolve_UnknownOverride(t *testing.T) {
	r, err := NewResolver(Descriptor{Kind: KindOpenAI, ModelID: "gpt-4o-mini", APIKey: "test-key"})
	require.NoError(t, err)

	_, err = r.Resolve(func(o *ResolveOptions) { o.Kind = "groq" })
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "provider", cfgErr.Setting)
}

func TestResolver_Embedder(t *testing.T) {
	// Anthropic chat without an OpenAI credential cannot embed.
	r, err := NewResolver(Descriptor{Kind: KindAnthropic, ModelID: "claude-sonnet-4-20250514", APIKey: "test-key"})
	require.NoError(t, err)
	_, err = r.Embedder()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "openai_api_key", cfgErr.Setting)

	// The OpenAI credential doubles as the embedding credential.
	r2, err := NewResolver(Descriptor{Kind: KindOpenAI, ModelID: "gpt-4o-mini", APIKey: "test-key"})
	require.NoError(t, err)
	e, err := r2.Embedder()
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimension())
}
