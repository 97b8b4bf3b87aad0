package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_FillsDefaults(t *testing.T) {
	cfg := Config{}.Normalize()

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultModelID, cfg.ModelID)
	assert.Equal(t, DefaultDBFile, cfg.DBFile)
	assert.Equal(t, DefaultIndexFile, cfg.IndexFile)
	assert.Equal(t, DefaultHistoryWindow, cfg.HistoryWindow)
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Provider:      "anthropic",
		ModelID:       "claude-sonnet-4-20250514",
		DBFile:        "data/conv.db",
		IndexFile:     "data/kb.db",
		HistoryWindow: 10,
	}.Normalize()

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.ModelID)
	assert.Equal(t, "data/conv.db", cfg.DBFile)
	assert.Equal(t, "data/kb.db", cfg.IndexFile)
	assert.Equal(t, 10, cfg.HistoryWindow)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "anthropic")
	t.Setenv("MODEL_ID", "claude-sonnet-4-20250514")
	t.Setenv("ANTHROPIC_API_KEY", "ak")
	t.Setenv("OPENAI_API_KEY", "ok")
	t.Setenv("DB_FILE", "data/conv.db")
	t.Setenv("KNOWLEDGE_INDEX_FILE", "data/kb.db")
	t.Setenv("KNOWLEDGE_SOURCES", "https://a.example/doc, https://b.example/doc,")
	t.Setenv("SEARCH_ENDPOINT", "https://search.example")
	t.Setenv("HISTORY_WINDOW", "7")

	cfg := FromEnv()
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.ModelID)
	assert.Equal(t, "ak", cfg.AnthropicAPIKey)
	assert.Equal(t, "ok", cfg.OpenAIAPIKey)
	assert.Equal(t, "data/conv.db", cfg.DBFile)
	assert.Equal(t, "data/kb.db", cfg.IndexFile)
	assert.Equal(t, []string{"https://a.example/doc", "https://b.example/doc"}, cfg.KnowledgeSources)
	assert.Equal(t, "https://search.example", cfg.SearchEndpoint)
	assert.Equal(t, 7, cfg.HistoryWindow)
}

func TestFromEnv_UnsetFallsBack(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("MODEL_ID", "")
	t.Setenv("HISTORY_WINDOW", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultModelID, cfg.ModelID)
	assert.Equal(t, DefaultHistoryWindow, cfg.HistoryWindow)
}

func TestCredentialFor(t *testing.T) {
	cfg := Config{OpenAIAPIKey: "ok", AnthropicAPIKey: "ak"}
	assert.Equal(t, "ok", cfg.CredentialFor("openai"))
	assert.Equal(t, "ak", cfg.CredentialFor("anthropic"))
	assert.Empty(t, cfg.CredentialFor("groq"))
}
