// Package llm implements a completion backend for the bridge: it forwards a
// prompt to a hosted language model and returns the generated text. Providers
// are pluggable behind the Provider interface, with adapters for the
// Anthropic and OpenAI APIs.
package llm

import (
	"context"

	"github.com/roninmesh/bridge/dispatch"
	"github.com/roninmesh/bridge/internal/util"
	"github.com/roninmesh/bridge/logging"
)

// Provider generates a completion for a prompt. Implementations block until
// the full text is available; the bridge's sequential model means there is
// no value in streaming partial output to the handler.
type Provider interface {
	// ModelID identifies the configured model, for diagnostics.
	ModelID() string
	// Complete returns the model's text response to prompt. system may be
	// empty.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Backend exposes a Provider over the bridge protocol.
type Backend struct {
	provider Provider
	logger   logging.Logger
}

// Options configures an llm Backend.
type Options struct {
	// Logger receives backend diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// New constructs an llm backend around the given provider.
func New(provider Provider, optFns ...func(o *Options)) *Backend {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{provider: provider, logger: opts.Logger}
}

// Handlers declares the backend's command set.
func (b *Backend) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		"complete":  b.complete,
		"get_model": b.getModel,
	}
}

func (b *Backend) complete(ctx context.Context, params map[string]any) (any, error) {
	prompt, err := util.StringParam(params, "prompt")
	if err != nil {
		return nil, err
	}
	system, err := util.OptionalStringParam(params, "system", "")
	if err != nil {
		return nil, err
	}

	b.logger.Debug("completion requested", "model", b.provider.ModelID(), "prompt_len", len(prompt))
	text, err := b.provider.Complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": text, "model": b.provider.ModelID()}, nil
}

func (b *Backend) getModel(context.Context, map[string]any) (any, error) {
	return map[string]any{"model": b.provider.ModelID()}, nil
}
