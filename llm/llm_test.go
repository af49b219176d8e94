package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	lastSystem string
	lastPrompt string
	text       string
	err        error
}

func (p *fakeProvider) ModelID() string { return "fake-model" }
func (p *fakeProvider) Complete(_ context.Context, system, prompt string) (string, error) {
	p.lastSystem = system
	p.lastPrompt = prompt
	return p.text, p.err
}

func TestComplete(t *testing.T) {
	provider := &fakeProvider{text: "hello from the model"}
	b := New(provider)

	result, err := b.complete(context.Background(), map[string]any{
		"prompt": "say hello",
		"system": "be brief",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"text": "hello from the model", "model": "fake-model"}, result)
	assert.Equal(t, "say hello", provider.lastPrompt)
	assert.Equal(t, "be brief", provider.lastSystem)
}

func TestCompleteRequiresPrompt(t *testing.T) {
	b := New(&fakeProvider{})
	_, err := b.complete(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestCompleteProviderError(t *testing.T) {
	b := New(&fakeProvider{err: errors.New("rate limited")})
	_, err := b.complete(context.Background(), map[string]any{"prompt": "x"})
	require.Error(t, err)
	assert.Equal(t, "rate limited", err.Error())
}

func TestGetModel(t *testing.T) {
	b := New(&fakeProvider{})
	result, err := b.getModel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"model": "fake-model"}, result)
}
