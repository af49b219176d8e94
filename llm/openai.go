package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIOptions configures the OpenAI provider. Fields mirror a minimal
// subset of Chat Completion parameters.
type OpenAIOptions struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// OpenAIProvider wraps the OpenAI Chat Completions API behind the Provider
// interface.
type OpenAIProvider struct {
	client *openai.Client
	opts   OpenAIOptions
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI provider using the official client,
// which reads OPENAI_API_KEY from the environment.
func NewOpenAIProvider(optFns ...func(o *OpenAIOptions)) *OpenAIProvider {
	client := openai.NewClient()
	return NewOpenAIProviderFromClient(&client, optFns...)
}

// NewOpenAIProviderFromClient creates an OpenAI provider from an existing
// client.
func NewOpenAIProviderFromClient(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAIProvider {
	opts := OpenAIOptions{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAIProvider{client: client, opts: opts}
}

// ModelID identifies the configured model.
func (p *OpenAIProvider) ModelID() string { return p.opts.Model }

// Complete runs a single-turn, non-streaming chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:               p.opts.Model,
		Messages:            messages,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
