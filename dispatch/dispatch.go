// Package dispatch routes commands to named handler functions. A Table is
// built once from a backend's declared handler set and is immutable for the
// process lifetime; resolution failures and handler panics surface as typed
// errors the runtime degrades to error responses.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Handler executes one named command. Params holds the keyword arguments
// from the Command record; it is never nil but may be empty. A handler may
// return a *Deferred to have the runtime block until the value is ready, or
// NoResponse to suppress the response entirely.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// NoResponse suppresses the Response for the current command when returned
// as a handler result.
var NoResponse = noResponse{}

type noResponse struct{}

// UnknownCommandError reports a command name absent from the table.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string { return fmt.Sprintf("Unknown command: %s", e.Name) }

// NotInvocableError reports a name that resolves to a nil handler.
type NotInvocableError struct {
	Name string
}

func (e *NotInvocableError) Error() string {
	return fmt.Sprintf("Command is not callable: %s", e.Name)
}

// HandlerError wraps a failure raised during handler execution, carrying a
// human-readable message and, for panics, a diagnostic stack trace.
type HandlerError struct {
	Command   string
	Message   string
	Traceback string
	Err       error
}

func (e *HandlerError) Error() string { return e.Message }

func (e *HandlerError) Unwrap() error { return e.Err }

// Table maps command names to handlers. Built once at backend construction;
// not safe for mutation after that, which the runtime never does.
type Table struct {
	handlers map[string]Handler
}

// NewTable builds a dispatch table from a backend's handler map. The map is
// copied; later mutation of the argument does not affect the table. Nil
// entries are kept so resolution can distinguish "unknown" from "declared
// but not invocable".
func NewTable(handlers map[string]Handler) *Table {
	t := &Table{handlers: make(map[string]Handler, len(handlers))}
	for name, h := range handlers {
		t.handlers[name] = h
	}
	return t
}

// SetDefault registers a handler only if the name is not already present,
// letting backends override the runtime's built-in lifecycle commands.
func (t *Table) SetDefault(name string, h Handler) {
	if _, ok := t.handlers[name]; !ok {
		t.handlers[name] = h
	}
}

// Names returns the set of resolvable command names.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	return names
}

// Resolve looks up a handler by exact name. It returns *UnknownCommandError
// for absent names and *NotInvocableError for nil entries.
func (t *Table) Resolve(name string) (Handler, error) {
	h, ok := t.handlers[name]
	if !ok {
		return nil, &UnknownCommandError{Name: name}
	}
	if h == nil {
		return nil, &NotInvocableError{Name: name}
	}
	return h, nil
}

// Invoke runs the handler and normalizes its outcome. Panics are recovered
// into a *HandlerError with a stack trace; error returns are wrapped in a
// *HandlerError preserving the original via Unwrap. A *Deferred result is
// resolved synchronously, blocking until the value is ready or ctx is done —
// the runtime supports at most one in-flight command, so a slow deferred
// stalls the whole loop by design of the protocol.
func Invoke(ctx context.Context, name string, h Handler, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &HandlerError{
				Command:   name,
				Message:   fmt.Sprintf("panic: %v", r),
				Traceback: string(debug.Stack()),
			}
		}
	}()

	if params == nil {
		params = map[string]any{}
	}

	result, err = h(ctx, params)
	if err != nil {
		return nil, &HandlerError{Command: name, Message: err.Error(), Err: err}
	}

	if d, ok := result.(*Deferred); ok {
		result, err = d.Await(ctx)
		if err != nil {
			return nil, &HandlerError{Command: name, Message: err.Error(), Err: err}
		}
	}
	return result, nil
}
