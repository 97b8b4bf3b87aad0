package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/model"
	anthropicmodel "github.com/hupe1980/agentforge/model/anthropic"
	openaimodel "github.com/hupe1980/agentforge/model/openai"
)

// Kind enumerates the supported model backends.
type Kind string

const (
	// KindOpenAI selects the OpenAI Chat Completions backend.
	KindOpenAI Kind = "openai"
	// KindAnthropic selects the Anthropic Messages backend.
	KindAnthropic Kind = "anthropic"
)

// supportedKinds lists accepted provider tags for error reporting.
var supportedKinds = []string{string(KindOpenAI), string(KindAnthropic)}

// String returns the provider tag.
func (k Kind) String() string { return string(k) }

// DisplayName returns a human-readable provider name.
func (k Kind) DisplayName() string {
	switch k {
	case KindOpenAI:
		return "OpenAI ChatGPT"
	case KindAnthropic:
		return "Anthropic Claude"
	default:
		return "Unknown Provider"
	}
}

// ParseKind validates a provider tag. Unknown tags yield a ConfigurationError
// naming the offending value and the supported set.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOpenAI:
		return KindOpenAI, nil
	case KindAnthropic:
		return KindAnthropic, nil
	default:
		return "", &core.ConfigurationError{
			Setting:   "provider",
			Value:     s,
			Supported: supportedKinds,
			Reason:    "unsupported provider",
		}
	}
}

// Descriptor is the fully specified model selection: provider kind, model id
// and the credential for that provider. Constructed at config-load time,
// immutable, reused across all agents.
type Descriptor struct {
	Kind    Kind
	ModelID string
	APIKey  string
}

// ResolverOptions configure resolver construction.
type ResolverOptions struct {
	// OpenAIAPIKey is consulted for the embedding capability even when the
	// default chat provider is Anthropic (Anthropic exposes no embeddings API).
	OpenAIAPIKey string
	// EmbeddingModel overrides the default embedding model id.
	EmbeddingModel string
	// EmbeddingDimension overrides the embedding output dimensionality.
	EmbeddingDimension int
}

// Resolver resolves logical model selections against a validated default
// descriptor. Resolution itself is pure: no network calls, no side effects.
type Resolver struct {
	defaults Descriptor
	opts     ResolverOptions
}

// NewResolver validates the default descriptor and constructs a Resolver.
// A missing credential for the selected provider is a ConfigurationError;
// callers must abort assembly.
func NewResolver(defaults Descriptor, optFns ...func(o *ResolverOptions)) (*Resolver, error) {
	opts := ResolverOptions{
		EmbeddingModel: openaimodel.DefaultEmbeddingModel,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, err := ParseKind(string(defaults.Kind)); err != nil {
		return nil, err
	}
	if defaults.APIKey == "" {
		return nil, &core.ConfigurationError{
			Setting: credentialSetting(defaults.Kind),
			Reason:  "credential must be non-empty for provider " + defaults.Kind.String(),
		}
	}
	if opts.OpenAIAPIKey == "" && defaults.Kind == KindOpenAI {
		opts.OpenAIAPIKey = defaults.APIKey
	}

	return &Resolver{defaults: defaults, opts: opts}, nil
}

// ResolveOptions are per-call overrides; zero values fall back to the
// resolver defaults.
type ResolveOptions struct {
	Kind    Kind
	ModelID string
}

// Resolve maps the (possibly overridden) selection to a concrete model
// client. One branch per Kind; unknown kinds fail with a ConfigurationError.
func (r *Resolver) Resolve(optFns ...func(o *ResolveOptions)) (model.Model, error) {
	opts := ResolveOptions{Kind: r.defaults.Kind, ModelID: r.defaults.ModelID}
	for _, fn := range optFns {
		fn(&opts)
	}

	kind, err := ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if opts.ModelID != "" {
				o.Model = opts.ModelID
			}
			o.APIKey = r.defaults.APIKey
		}), nil
	case KindAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if opts.ModelID != "" {
				o.Model = anthropic.Model(opts.ModelID)
			}
			o.APIKey = r.defaults.APIKey
		}), nil
	default:
		// Unreachable after ParseKind; kept as an explicit exhaustiveness guard.
		return nil, &core.ConfigurationError{
			Setting:   "provider",
			Value:     kind.String(),
			Supported: supportedKinds,
			Reason:    "unsupported provider",
		}
	}
}

// Embedder returns the embedding capability. Embeddings are always served by
// the OpenAI embeddings API regardless of the chat provider; the OpenAI
// credential is therefore required.
func (r *Resolver) Embedder() (model.Embedder, error) {
	if r.opts.OpenAIAPIKey == "" {
		return nil, &core.ConfigurationError{
			Setting: "openai_api_key",
			Reason:  "embedding capability requires an OpenAI credential",
		}
	}
	return openaimodel.NewEmbedder(func(o *openaimodel.EmbedderOptions) {
		o.Model = r.opts.EmbeddingModel
		if r.opts.EmbeddingDimension > 0 {
			o.Dimension = r.opts.EmbeddingDimension
		}
		o.APIKey = r.opts.OpenAIAPIKey
	}), nil
}

// Defaults returns a copy of the default descriptor.
func (r *Resolver) Defaults() Descriptor { return r.defaults }

func credentialSetting(k Kind) string {
	switch k {
	case KindAnthropic:
		return "anthropic_api_key"
	default:
		return "openai_api_key"
	}
}
