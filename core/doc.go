// Package core defines the shared leaf types of the AgentForge runtime:
// conversation turns, normalized tool calls and the typed error taxonomy
// used across assembly, storage and retrieval.
//
// Higher layers (provider, store, knowledge, agent) depend on core only;
// core depends on nothing but the standard library and uuid generation.
package core
