package core

import (
	"time"

	"github.com/google/uuid"
)

// Conversation roles used throughout the runtime. Providers map these onto
// their own wire formats.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall describes a function invocation requested by a model, normalized
// across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // serialized JSON payload
}

// Turn is one element of a conversation record. Seq is assigned by the
// conversation store on append and establishes the total order within a
// store key. Turns are treated as immutable after emission.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq,omitempty"`

	// ToolCalls is populated on assistant turns that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID and ToolName correlate a tool-role turn with the assistant
	// call that produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

// NewTurn constructs a turn with a fresh ID and UTC timestamp.
func NewTurn(role, content string) Turn {
	return Turn{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn is a convenience wrapper for a user-authored text turn.
func NewUserTurn(content string) Turn { return NewTurn(RoleUser, content) }

// NewAssistantTurn is a convenience wrapper for an assistant text turn.
func NewAssistantTurn(content string) Turn { return NewTurn(RoleAssistant, content) }

// NewToolTurn records the outcome of a tool invocation so it can be fed back
// to the model on the next generation round.
func NewToolTurn(callID, toolName, content string) Turn {
	t := NewTurn(RoleTool, content)
	t.ToolCallID = callID
	t.ToolName = toolName
	return t
}

// NewID generates a unique identifier for turns, chunks and sources.
func NewID() string { return uuid.NewString() }
