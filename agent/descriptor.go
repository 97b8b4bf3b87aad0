package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/knowledge"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/memory"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/store"
	"github.com/hupe1980/agentforge/tool"
)

// maxToolIterations bounds the generate / execute-tool loop for a single
// Respond call.
const maxToolIterations = 5

// knowledgeTopK is the number of knowledge chunks retrieved per message.
const knowledgeTopK = 4

// memoryRecallLimit bounds how many recalled memories are injected per message.
const memoryRecallLimit = 5

// Descriptor is a fully resolved, immutable agent. All wiring decisions
// (model, conversation handle, tool set, knowledge pipeline, context flags)
// are fixed at Build time; Respond only reads them.
type Descriptor struct {
	name         string
	description  string
	instructions []string
	storeKey     string

	model        model.Model
	conversation store.Conversation
	tools        map[string]tool.Tool
	toolOrder    []string
	knowledge    *knowledge.Pipeline
	memories     memory.Store

	includeHistory      bool
	includeSessionState bool
	includeDependencies bool
	includeMemories     bool
	historyWindow       int

	logger logging.Logger
}

// Name returns the display name.
func (d *Descriptor) Name() string { return d.name }

// Description returns the human-readable description.
func (d *Descriptor) Description() string { return d.description }

// StoreKey returns the conversation isolation key.
func (d *Descriptor) StoreKey() string { return d.storeKey }

// HistoryWindow returns the number of prior turns replayed per message.
func (d *Descriptor) HistoryWindow() int { return d.historyWindow }

// HasKnowledge reports whether a knowledge pipeline is attached.
func (d *Descriptor) HasKnowledge() bool { return d.knowledge != nil }

// IncludesMemories reports whether memory recall feeds the prompt.
func (d *Descriptor) IncludesMemories() bool { return d.includeMemories }

// Tools returns the tool names in registration order.
func (d *Descriptor) Tools() []string {
	return append([]string(nil), d.toolOrder...)
}

// Respond answers a single inbound message. It composes prior history,
// retrieved knowledge and recalled memories into one model exchange, runs
// any requested tool calls, and on success appends the user and assistant
// turns to the conversation. A failed exchange leaves the history untouched.
func (d *Descriptor) Respond(ctx context.Context, message string) (string, error) {
	var history []core.Turn
	if d.includeHistory && d.conversation != nil {
		turns, err := d.conversation.Read(ctx, d.historyWindow)
		if err != nil {
			d.logger.Warn("history read failed, continuing without history",
				"agent", d.name, "error", err.Error())
		} else {
			// Read hands back most-recent-first; the model wants
			// chronological order.
			history = make([]core.Turn, len(turns))
			for i, t := range turns {
				history[len(turns)-1-i] = t
			}
		}
	}

	instructions := d.composeInstructions(ctx, message)

	userTurn := core.NewUserTurn(message)
	content, err := d.exchange(ctx, instructions, append(history, userTurn))
	if err != nil {
		return "", err
	}

	if d.conversation != nil {
		// One atomic append: history never ends up with a user turn
		// missing its answer.
		if err := d.conversation.Append(ctx, userTurn, core.NewAssistantTurn(content)); err != nil {
			return "", err
		}
	}

	return content, nil
}

// composeInstructions folds agent instructions, best-effort knowledge
// retrieval and recalled memories into the system prompt for one message.
func (d *Descriptor) composeInstructions(ctx context.Context, message string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("You are %s.", d.name))
	if d.description != "" {
		b.WriteString(" " + d.description)
	}
	for _, ins := range d.instructions {
		b.WriteString("\n" + ins)
	}

	if d.knowledge != nil {
		chunks, err := d.knowledge.Query(ctx, message, knowledgeTopK)
		if err != nil {
			d.logger.Warn("knowledge query failed, continuing without references",
				"agent", d.name, "error", err.Error())
		} else if len(chunks) > 0 {
			b.WriteString("\n\nReferences:")
			for _, c := range chunks {
				b.WriteString(fmt.Sprintf("\n[%s#%d] %s", c.SourceID, c.Pos, c.Content))
			}
		}
	}

	if d.includeMemories && d.memories != nil {
		results, err := d.memories.Recall(d.storeKey, message, memoryRecallLimit)
		if err != nil {
			d.logger.Warn("memory recall failed, continuing without memories",
				"agent", d.name, "error", err.Error())
		} else if len(results) > 0 {
			b.WriteString("\n\nRelevant memories:")
			for _, r := range results {
				b.WriteString("\n- " + r.Content)
			}
		}
	}

	return b.String()
}

// exchange drives the generate / execute-tool loop until the model returns
// a response without tool calls or the iteration bound is hit.
func (d *Descriptor) exchange(ctx context.Context, instructions string, history []core.Turn) (string, error) {
	defs := d.definitions()

	for i := 0; i < maxToolIterations; i++ {
		start := time.Now()
		respCh, errCh := d.model.Generate(ctx, model.Request{
			Instructions: instructions,
			History:      history,
			Tools:        defs,
		})

		resp, err := collect(respCh, errCh)
		logging.LogModelCall(d.logger, d.model.Info().Name, time.Since(start), err == nil, err)
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", d.name, err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		assistant := core.NewAssistantTurn(resp.Content)
		assistant.ToolCalls = resp.ToolCalls
		history = append(history, assistant)

		for _, call := range resp.ToolCalls {
			result := d.executeTool(ctx, call)
			history = append(history, core.NewToolTurn(call.ID, call.Name, result))
		}
	}

	return "", fmt.Errorf("agent %s: exceeded %d tool iterations without a final response", d.name, maxToolIterations)
}

// executeTool runs one requested tool call. Failures are reported back to
// the model as the tool result rather than aborting the exchange.
func (d *Descriptor) executeTool(ctx context.Context, call core.ToolCall) string {
	t, ok := d.tools[call.Name]
	if !ok {
		d.logger.Warn("model requested unknown tool", "agent", d.name, "tool", call.Name)
		return fmt.Sprintf("error: tool %q is not available", call.Name)
	}

	args := make(map[string]interface{})
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("error: invalid tool arguments: %v", err)
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		d.logger.Warn("tool call failed", "agent", d.name, "tool", call.Name, "error", err.Error())
		return fmt.Sprintf("error: %v", err)
	}

	switch v := result.(type) {
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func (d *Descriptor) definitions() []model.ToolDefinition {
	if len(d.toolOrder) == 0 {
		return nil
	}
	ordered := make([]tool.Tool, 0, len(d.toolOrder))
	for _, name := range d.toolOrder {
		ordered = append(ordered, d.tools[name])
	}
	return tool.Definitions(ordered)
}

// collect drains a Generate call, aggregating streamed partials and
// returning the final response.
func collect(respCh <-chan model.Response, errCh <-chan error) (model.Response, error) {
	var final model.Response
	var partial strings.Builder

	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partial.WriteString(r.Content)
				continue
			}
			final = r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return model.Response{}, err
			}
		}
	}

	if final.Content == "" && partial.Len() > 0 {
		final.Content = partial.String()
	}
	return final, nil
}
