// Package store implements the conversation store adapter: a keyed, durable
// record store providing per-agent-isolated history under one shared SQLite
// backing file. Multiple store keys share the file; each key gets its own
// conversation table so histories never interleave.
//
// Append is append-only and serialized per key; Read returns turns
// most-recent-first bounded to a window. An in-memory implementation of the
// same Conversation interface is provided for tests and ephemeral use.
package store
