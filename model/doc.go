// Package model defines the provider-agnostic abstractions for interacting
// with language and embedding models inside AgentForge.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel, MockEmbedder)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, knowledge pipeline) remain decoupled
// from vendor SDKs.
package model
