package echo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementAndGetCount(t *testing.T) {
	b := New()
	ctx := context.Background()

	result, err := b.increment(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 1}, result)

	result, err = b.increment(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2}, result)

	result, err = b.getCount(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2}, result)
}

func TestEcho(t *testing.T) {
	b := New()

	result, err := b.echo(context.Background(), map[string]any{"data": map[string]any{"k": "v"}})
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, map[string]any{"k": "v"}, m["echo"])
	assert.IsType(t, float64(0), m["timestamp"])
}

func TestMessages(t *testing.T) {
	b := New()
	ctx := context.Background()

	result, err := b.addMessage(ctx, map[string]any{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 1}, result)

	_, err = b.addMessage(ctx, map[string]any{})
	assert.Error(t, err) // message is required

	result, err = b.getMessages(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"messages": []string{"hello"}}, result)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		operation string
		a, b      float64
		want      float64
	}{
		{"add", 2, 3, 5},
		{"subtract", 5, 3, 2},
		{"multiply", 4, 2.5, 10},
		{"divide", 9, 3, 3},
	}

	b := New()
	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			result, err := b.calculate(context.Background(), map[string]any{
				"operation": tt.operation,
				"a":         tt.a,
				"b":         tt.b,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.(map[string]any)["result"])
		})
	}
}

func TestCalculateErrors(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, err := b.calculate(ctx, map[string]any{"operation": "divide", "a": 1.0, "b": 0.0})
	require.Error(t, err)
	assert.Equal(t, "Division by zero", err.Error())

	_, err = b.calculate(ctx, map[string]any{"operation": "modulo", "a": 1.0, "b": 2.0})
	require.Error(t, err)
	assert.Equal(t, "Unknown operation: modulo", err.Error())

	_, err = b.calculate(ctx, map[string]any{"operation": "add", "a": 1.0})
	assert.Error(t, err) // missing operand
}

func TestPing(t *testing.T) {
	b := New()

	result, err := b.ping(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]any)["pong"])
}
