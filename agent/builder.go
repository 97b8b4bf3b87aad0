package agent

import (
	"fmt"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/knowledge"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/memory"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/store"
	"github.com/hupe1980/agentforge/tool"
)

// DefaultHistoryWindow bounds how many prior turns are replayed to the model
// when no override is given.
const DefaultHistoryWindow = 3

// Required holds the fields every agent must supply. There are no defaults
// for these; Build rejects empty name or store key.
type Required struct {
	Name         string
	Description  string
	Instructions []string
	StoreKey     string
}

// Options holds the per-agent overrides merged on top of the builder
// defaults. Build pre-populates every field from the defaults before
// applying option functions, so an option only needs to set what it wants
// to change. A non-nil empty Tools slice is an explicit "no tools", not a
// request for the default set.
type Options struct {
	Model        model.Model
	Conversation store.Conversation
	Tools        []tool.Tool
	Knowledge    *knowledge.Pipeline
	Memories     memory.Store

	IncludeHistory      bool
	IncludeSessionState bool
	IncludeDependencies bool
	IncludeMemories     bool

	HistoryWindow int
}

// Defaults are the runtime-wide fallbacks a Builder applies to every agent
// it constructs.
type Defaults struct {
	Model         model.Model
	Conversations *store.Store
	Tools         []tool.Tool
	Memories      memory.Store
	HistoryWindow int
	Logger        logging.Logger

	IncludeHistory      bool
	IncludeSessionState bool
	IncludeDependencies bool
	IncludeMemories     bool
}

// Builder constructs immutable Descriptors. It tracks the store keys it has
// handed out so two descriptors can never share a conversation table in the
// same backing file.
type Builder struct {
	defaults Defaults
	logger   logging.Logger
	used     map[string]bool
}

// NewBuilder creates a Builder around the given defaults.
func NewBuilder(defaults Defaults) *Builder {
	if defaults.HistoryWindow <= 0 {
		defaults.HistoryWindow = DefaultHistoryWindow
	}
	if defaults.Logger == nil {
		defaults.Logger = logging.NoOpLogger{}
	}
	return &Builder{
		defaults: defaults,
		logger:   defaults.Logger,
		used:     make(map[string]bool),
	}
}

// Build merges required fields with overrides against the builder defaults
// and returns the immutable descriptor. Every optional field independently
// falls back to its default when the option functions leave it untouched.
func (b *Builder) Build(req Required, optFns ...func(o *Options)) (*Descriptor, error) {
	if req.Name == "" {
		return nil, &core.ConfigurationError{Setting: "name", Reason: "must be non-empty"}
	}
	if req.StoreKey == "" {
		return nil, &core.ConfigurationError{Setting: "store_key", Reason: "must be non-empty"}
	}
	if b.used[req.StoreKey] {
		return nil, &core.ConfigurationError{
			Setting: "store_key",
			Value:   req.StoreKey,
			Reason:  "already registered against this backing file",
		}
	}

	opts := Options{
		Model:               b.defaults.Model,
		Tools:               b.defaults.Tools,
		Memories:            b.defaults.Memories,
		IncludeHistory:      b.defaults.IncludeHistory,
		IncludeSessionState: b.defaults.IncludeSessionState,
		IncludeDependencies: b.defaults.IncludeDependencies,
		IncludeMemories:     b.defaults.IncludeMemories,
		HistoryWindow:       b.defaults.HistoryWindow,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, &core.ConfigurationError{
			Setting: "model",
			Reason:  fmt.Sprintf("agent %q has no model and the builder carries no default", req.Name),
		}
	}

	conv := opts.Conversation
	if conv == nil {
		if b.defaults.Conversations == nil {
			return nil, &core.ConfigurationError{
				Setting: "store",
				Reason:  fmt.Sprintf("agent %q has no conversation store and the builder carries no default", req.Name),
			}
		}
		handle, err := b.defaults.Conversations.Handle(req.StoreKey)
		if err != nil {
			return nil, err
		}
		conv = handle
	}

	tools := make(map[string]tool.Tool, len(opts.Tools))
	order := make([]string, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		if _, exists := tools[t.Name()]; !exists {
			order = append(order, t.Name())
		}
		tools[t.Name()] = t
	}

	b.used[req.StoreKey] = true
	b.logger.Debug("agent built",
		"name", req.Name,
		"store_key", req.StoreKey,
		"tools", len(tools),
		"knowledge", opts.Knowledge != nil,
	)

	return &Descriptor{
		name:                req.Name,
		description:         req.Description,
		instructions:        append([]string(nil), req.Instructions...),
		storeKey:            req.StoreKey,
		model:               opts.Model,
		conversation:        conv,
		tools:               tools,
		toolOrder:           order,
		knowledge:           opts.Knowledge,
		memories:            opts.Memories,
		includeHistory:      opts.IncludeHistory,
		includeSessionState: opts.IncludeSessionState,
		includeDependencies: opts.IncludeDependencies,
		includeMemories:     opts.IncludeMemories,
		historyWindow:       opts.HistoryWindow,
		logger:              b.logger,
	}, nil
}
