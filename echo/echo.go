// Package echo implements a small demonstration backend for the bridge:
// an echo command, a counter, a message log, and a four-function calculator.
// It exists to exercise the protocol end to end and as a template for real
// backends.
package echo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roninmesh/bridge/dispatch"
	"github.com/roninmesh/bridge/internal/util"
)

// Backend holds the echo backend's state. Handlers are only ever invoked
// sequentially by the receive loop, so the fields need no locking.
type Backend struct {
	counter  int
	messages []string
	now      func() time.Time
}

// New constructs an echo backend.
func New() *Backend {
	// messages starts non-nil so get_messages reports an empty list, not null.
	return &Backend{messages: []string{}, now: time.Now}
}

// Handlers declares the backend's command set.
func (b *Backend) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		"echo":         b.echo,
		"ping":         b.ping,
		"increment":    b.increment,
		"get_count":    b.getCount,
		"add_message":  b.addMessage,
		"get_messages": b.getMessages,
		"calculate":    b.calculate,
	}
}

func (b *Backend) timestamp() float64 {
	return float64(b.now().UnixNano()) / float64(time.Second)
}

// echo returns its input unchanged.
func (b *Backend) echo(_ context.Context, params map[string]any) (any, error) {
	return map[string]any{"echo": params["data"], "timestamp": b.timestamp()}, nil
}

func (b *Backend) ping(context.Context, map[string]any) (any, error) {
	return map[string]any{"pong": true, "timestamp": b.timestamp()}, nil
}

func (b *Backend) increment(context.Context, map[string]any) (any, error) {
	b.counter++
	return map[string]any{"count": b.counter}, nil
}

func (b *Backend) getCount(context.Context, map[string]any) (any, error) {
	return map[string]any{"count": b.counter}, nil
}

func (b *Backend) addMessage(_ context.Context, params map[string]any) (any, error) {
	message, err := util.StringParam(params, "message")
	if err != nil {
		return nil, err
	}
	b.messages = append(b.messages, message)
	return map[string]any{"count": len(b.messages)}, nil
}

func (b *Backend) getMessages(context.Context, map[string]any) (any, error) {
	return map[string]any{"messages": b.messages}, nil
}

// calculate performs one of add, subtract, multiply or divide on two
// operands.
func (b *Backend) calculate(_ context.Context, params map[string]any) (any, error) {
	operation, err := util.StringParam(params, "operation")
	if err != nil {
		return nil, err
	}
	a, err := util.FloatParam(params, "a")
	if err != nil {
		return nil, err
	}
	bb, err := util.FloatParam(params, "b")
	if err != nil {
		return nil, err
	}

	var result float64
	switch operation {
	case "add":
		result = a + bb
	case "subtract":
		result = a - bb
	case "multiply":
		result = a * bb
	case "divide":
		if bb == 0 {
			return nil, errors.New("Division by zero")
		}
		result = a / bb
	default:
		return nil, fmt.Errorf("Unknown operation: %s", operation)
	}

	return map[string]any{
		"operation": operation,
		"a":         a,
		"b":         bb,
		"result":    result,
	}, nil
}
