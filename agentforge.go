// Package agentforge assembles a fixed set of conversational agents from an
// explicit configuration record. Most applications interact with this
// package by:
//  1. Building a config.Config (config.FromEnv() or a literal)
//  2. Calling Assemble to resolve models, open stores and construct agents
//  3. Routing inbound messages through the returned Registry
//
// Assembly is fail-fast for configuration and storage problems and
// best-effort for retrieval augmentation: a knowledge pipeline that cannot
// be built degrades the documentation agent to plain conversation instead
// of failing startup.
package agentforge

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/agent"
	"github.com/hupe1980/agentforge/config"
	"github.com/hupe1980/agentforge/knowledge"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/memory"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/provider"
	"github.com/hupe1980/agentforge/store"
	"github.com/hupe1980/agentforge/tool"
)

// Store keys of the fixed agent set. Each key owns its own conversation
// table in the shared backing file.
const (
	KeyGeneralPurpose      = "general-purpose"
	KeyResearch            = "research"
	KeyDocumentationAssist = "documentation-assist"
)

// Options configure assembly. Any unset field falls back to a default
// derived from the configuration record.
type Options struct {
	// Logger receives assembly and per-request diagnostics. Defaults to NoOp.
	Logger logging.Logger

	// Model overrides provider resolution entirely. Intended for tests and
	// embedders of the library that construct their own client.
	Model model.Model

	// Embedder overrides the embedding capability used by the knowledge
	// pipeline.
	Embedder model.Embedder

	// Fetcher overrides how knowledge sources are retrieved.
	Fetcher knowledge.Fetcher

	// Memories is the optional memory store shared by agents whose flags
	// include memory recall.
	Memories memory.Store
}

// Registry maps store keys to assembled agent descriptors. It owns the
// shared conversation store and the knowledge index and should be closed
// when the process shuts down.
type Registry struct {
	agents    map[string]*agent.Descriptor
	order     []string
	store     *store.Store
	knowledge *knowledge.Pipeline
	logger    logging.Logger
}

// Get returns the descriptor for a store key.
func (r *Registry) Get(storeKey string) (*agent.Descriptor, bool) {
	d, ok := r.agents[storeKey]
	return d, ok
}

// Keys returns the store keys in assembly order.
func (r *Registry) Keys() []string { return append([]string(nil), r.order...) }

// Len returns the number of assembled agents.
func (r *Registry) Len() int { return len(r.agents) }

// Knowledge returns the shared knowledge pipeline, or nil when retrieval
// augmentation is degraded.
func (r *Registry) Knowledge() *knowledge.Pipeline { return r.knowledge }

// Respond routes a message to the agent registered under storeKey.
func (r *Registry) Respond(ctx context.Context, storeKey, message string) (string, error) {
	d, ok := r.agents[storeKey]
	if !ok {
		return "", fmt.Errorf("no agent registered under store key %q", storeKey)
	}
	return d.Respond(ctx, message)
}

// Close releases the conversation store and the knowledge index.
func (r *Registry) Close() error {
	var first error
	if r.knowledge != nil {
		if err := r.knowledge.Close(); err != nil {
			first = err
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Assemble resolves the configured provider, opens the shared conversation
// store and constructs the three fixed agents. Configuration and storage
// errors abort assembly with no partially built registry; knowledge
// pipeline failures only degrade the documentation agent.
func Assemble(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*Registry, error) {
	cfg = cfg.Normalize()

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger

	mdl := opts.Model
	embedder := opts.Embedder
	if mdl == nil {
		kind, err := provider.ParseKind(cfg.Provider)
		if err != nil {
			return nil, err
		}

		resolver, err := provider.NewResolver(provider.Descriptor{
			Kind:    kind,
			ModelID: cfg.ModelID,
			APIKey:  cfg.CredentialFor(cfg.Provider),
		}, func(o *provider.ResolverOptions) {
			o.OpenAIAPIKey = cfg.OpenAIAPIKey
		})
		if err != nil {
			return nil, err
		}

		if mdl, err = resolver.Resolve(); err != nil {
			return nil, err
		}

		if embedder == nil {
			if embedder, err = resolver.Embedder(); err != nil {
				logger.Warn("embedding capability unavailable, retrieval augmentation disabled",
					"error", err.Error())
				embedder = nil
			}
		}
	}

	st, err := store.Open(cfg.DBFile, func(o *store.Options) { o.Logger = logger })
	if err != nil {
		return nil, err
	}

	pipeline := buildKnowledge(ctx, cfg, embedder, opts.Fetcher, logger)

	searchTool := buildSearchTool(cfg)
	fullTools := []tool.Tool{tool.NewCalculator()}
	researchTools := []tool.Tool{}
	if searchTool != nil {
		fullTools = append(fullTools, searchTool)
		researchTools = append(researchTools, searchTool)
	}

	builder := agent.NewBuilder(agent.Defaults{
		Model:           mdl,
		Conversations:   st,
		Memories:        opts.Memories,
		HistoryWindow:   cfg.HistoryWindow,
		Logger:          logger,
		IncludeHistory:  true,
		IncludeMemories: opts.Memories != nil,
	})

	reg := &Registry{
		agents:    make(map[string]*agent.Descriptor),
		store:     st,
		knowledge: pipeline,
		logger:    logger,
	}

	specs := []struct {
		req   agent.Required
		optFn func(o *agent.Options)
	}{
		{
			req: agent.Required{
				Name:        "General Purpose Agent",
				Description: "A versatile assistant for everyday questions and tasks.",
				Instructions: []string{
					"Answer clearly and concisely.",
					"Use the available tools when a computation or lookup is needed.",
				},
				StoreKey: KeyGeneralPurpose,
			},
			optFn: func(o *agent.Options) {
				o.Tools = fullTools
			},
		},
		{
			req: agent.Required{
				Name:        "Research Agent",
				Description: "An investigator that gathers up-to-date information from the web.",
				Instructions: []string{
					"Ground every claim in retrieved sources.",
					"Cite the origin of each fact you report.",
				},
				StoreKey: KeyResearch,
			},
			optFn: func(o *agent.Options) {
				o.Tools = researchTools
				o.IncludeMemories = false
			},
		},
		{
			req: agent.Required{
				Name:        "Documentation Assistant",
				Description: "A helper that answers questions about the ingested documentation.",
				Instructions: []string{
					"Answer from the provided references when they are present.",
					"Say so plainly when the documentation does not cover a question.",
				},
				StoreKey: KeyDocumentationAssist,
			},
			optFn: func(o *agent.Options) {
				o.Tools = []tool.Tool{}
				o.Knowledge = pipeline
			},
		},
	}

	for _, s := range specs {
		d, err := builder.Build(s.req, s.optFn)
		if err != nil {
			reg.agents = nil
			_ = reg.Close()
			return nil, err
		}
		reg.agents[s.req.StoreKey] = d
		reg.order = append(reg.order, s.req.StoreKey)
	}

	logger.Info("assembly complete",
		"agents", len(reg.agents),
		"knowledge", pipeline != nil,
		"db_file", cfg.DBFile,
	)
	return reg, nil
}

// buildKnowledge constructs the knowledge pipeline and ingests the
// configured sources. Every failure here degrades to nil instead of
// propagating; retrieval augmentation is an enhancement, not a dependency.
func buildKnowledge(ctx context.Context, cfg config.Config, embedder model.Embedder, fetcher knowledge.Fetcher, logger logging.Logger) *knowledge.Pipeline {
	if embedder == nil {
		return nil
	}

	pipeline, err := knowledge.NewPipeline(cfg.IndexFile, embedder, func(o *knowledge.Options) {
		o.Logger = logger
		if fetcher != nil {
			o.Fetcher = fetcher
		}
	})
	if err != nil {
		logger.Warn("knowledge pipeline unavailable, retrieval augmentation disabled",
			"index_file", cfg.IndexFile, "error", err.Error())
		return nil
	}

	for _, url := range cfg.KnowledgeSources {
		src := knowledge.Source{ID: url, Name: url, URL: url}
		if err := pipeline.Ingest(ctx, src, false); err != nil {
			logger.Warn("knowledge source ingestion failed", "source", url, "error", err.Error())
		}
	}

	return pipeline
}

// buildSearchTool returns the remote search tool, or nil when no endpoint
// is configured.
func buildSearchTool(cfg config.Config) tool.Tool {
	if cfg.SearchEndpoint == "" {
		return nil
	}
	return tool.NewWebSearch(cfg.SearchEndpoint)
}
