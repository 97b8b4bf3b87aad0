package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentforge/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by agent descriptors.
// History is ordered oldest first; the final turn is the one being answered.
type Request struct {
	Instructions string           `json:"instructions"`
	History      []core.Turn      `json:"history"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string          `json:"id"`
	Partial      bool            `json:"partial"`
	Content      string          `json:"content"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Embedder turns text into a fixed-dimensionality vector. Implementations
// must return vectors of exactly Dimension() entries; the knowledge index
// enforces this at write time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model; emits optional streaming char chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.History) == 0 {
			errCh <- fmt.Errorf("no history provided")
			return
		}
		inputText := req.History[len(req.History)-1].Content
		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Content: string(r)}:
				}
			}
		}
		respCh <- Response{Content: full, FinishReason: "stop"}
	}()
	return respCh, errCh
}

// Info implements the Model interface.
func (m *MockModel) Info() Info { return m.info }

// MockEmbedder produces deterministic pseudo-embeddings derived from token
// hashes. Vectors are stable across calls so idempotence and ranking tests
// can compare index contents byte for byte.
type MockEmbedder struct {
	dim  int
	fail error // when set, Embed returns this error
}

// NewMockEmbedder constructs a MockEmbedder with the given dimensionality.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 16
	}
	return &MockEmbedder{dim: dim}
}

// FailWith makes every subsequent Embed call return err. Passing nil clears
// the failure injection.
func (m *MockEmbedder) FailWith(err error) { m.fail = err }

// Embed implements Embedder with a token-hash bag-of-words projection.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	vec := make([]float32, m.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		var h uint32 = 2166136261
		for i := 0; i < len(tok); i++ {
			h ^= uint32(tok[i])
			h *= 16777619
		}
		vec[h%uint32(m.dim)] += 1
	}
	return vec, nil
}

// Dimension implements Embedder.
func (m *MockEmbedder) Dimension() int { return m.dim }
