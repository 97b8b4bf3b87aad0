// Package config defines the explicit configuration record consumed by the
// runtime assembler. The record is constructed once, at process start, and
// passed by value to Assemble; no component performs hidden environment
// lookups of its own.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Defaults applied when neither the environment nor the caller supplies a
// value.
const (
	DefaultProvider      = "openai"
	DefaultModelID       = "gpt-4o-mini"
	DefaultDBFile        = "tmp/agents.db"
	DefaultIndexFile     = "tmp/knowledge.db"
	DefaultHistoryWindow = 3
)

// Config carries every tunable the assembler needs. Zero values mean "use
// the documented default"; Normalize fills them in.
type Config struct {
	// Provider selects the chat model backend ("openai" or "anthropic").
	Provider string
	// ModelID names the chat model within the provider.
	ModelID string

	OpenAIAPIKey    string
	AnthropicAPIKey string

	// DBFile is the shared conversation backing file.
	DBFile string
	// IndexFile is the knowledge index backing file.
	IndexFile string

	// KnowledgeSources lists document URLs ingested at startup, best-effort.
	KnowledgeSources []string

	// SearchEndpoint is the remote web-search service used by the research
	// agent. Empty disables the search tool.
	SearchEndpoint string

	// HistoryWindow bounds how many prior turns each agent replays.
	HistoryWindow int
}

// FromEnv builds a Config from process environment variables, falling back
// to the package defaults for anything unset.
//
// Recognized variables: MODEL_PROVIDER, MODEL_ID, OPENAI_API_KEY,
// ANTHROPIC_API_KEY, DB_FILE, KNOWLEDGE_INDEX_FILE, KNOWLEDGE_SOURCES
// (comma separated), SEARCH_ENDPOINT, HISTORY_WINDOW.
func FromEnv() Config {
	cfg := Config{
		Provider:        os.Getenv("MODEL_PROVIDER"),
		ModelID:         os.Getenv("MODEL_ID"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		DBFile:          os.Getenv("DB_FILE"),
		IndexFile:       os.Getenv("KNOWLEDGE_INDEX_FILE"),
		SearchEndpoint:  os.Getenv("SEARCH_ENDPOINT"),
	}

	if raw := os.Getenv("KNOWLEDGE_SOURCES"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.KnowledgeSources = append(cfg.KnowledgeSources, s)
			}
		}
	}

	if raw := os.Getenv("HISTORY_WINDOW"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.HistoryWindow = n
		}
	}

	return cfg.Normalize()
}

// Normalize returns a copy with every zero-valued field replaced by its
// default. It never mutates the receiver.
func (c Config) Normalize() Config {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.ModelID == "" {
		c.ModelID = DefaultModelID
	}
	if c.DBFile == "" {
		c.DBFile = DefaultDBFile
	}
	if c.IndexFile == "" {
		c.IndexFile = DefaultIndexFile
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	return c
}

// CredentialFor returns the API key for a provider tag. Unknown tags return
// the empty string; the provider resolver reports those properly.
func (c Config) CredentialFor(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}
