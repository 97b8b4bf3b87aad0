// Package agent assembles immutable agent descriptors from a shared set of
// builder defaults and per-agent overrides.
//
// A Builder carries the runtime-wide defaults (model, conversation store,
// tool set, context-inclusion flags). Each Build call merges explicit
// overrides field by field on top of those defaults and validates the
// result, producing a Descriptor that never changes after construction.
// Descriptors own their conversation handle and answer messages through
// Respond, which wires history, retrieved knowledge, recalled memories and
// tool execution into a single model exchange.
package agent
