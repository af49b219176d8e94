// Package bridge implements the child-process side of a stdio IPC protocol:
// a host spawns a backend binary, writes newline-delimited JSON commands to
// its stdin, and reads NUL-delimited JSON responses and events from its
// stdout. Most backends interact with this package by:
//  1. Implementing Backend (a map of named command handlers)
//  2. Creating a Bridge via New() (optionally overriding streams and logger)
//  3. Calling Run(), which blocks until the input stream closes or a
//     shutdown command is processed
//
// The runtime is strictly sequential: one command is read, dispatched and
// answered before the next is read. Handlers never crash the loop — decode
// failures, unknown commands and handler errors all degrade to error
// responses on the wire.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/roninmesh/bridge/dispatch"
	"github.com/roninmesh/bridge/logging"
	"github.com/roninmesh/bridge/protocol"
	"github.com/roninmesh/bridge/wire"
)

// Version is reported by the built-in ready command.
const Version = "0.1.0"

// Backend is the capability contract a concrete backend implements: a set of
// named, invokable operations taking keyword parameters and returning
// JSON-serializable results. The runtime requires nothing beyond this; the
// built-in ready and shutdown commands are supplied automatically unless the
// backend declares its own.
type Backend interface {
	// Handlers returns the backend's command set. Called once at Bridge
	// construction; the returned map is copied and never consulted again.
	Handlers() map[string]dispatch.Handler
}

// EventSink accepts unsolicited outbound events. The Bridge itself is the
// canonical implementation; it is safe to call from any goroutine.
type EventSink interface {
	Emit(name string, payload any) error
}

// EventEmitter is an optional Backend capability. Backends that push events
// implement it to receive the sink at Bridge construction.
type EventEmitter interface {
	SetEventSink(sink EventSink)
}

// Stopper is an optional Backend capability. Backends that override the
// built-in shutdown command implement it to receive a stop function ending
// the receive loop at its next iteration boundary.
type Stopper interface {
	SetStop(stop func())
}

// Options configures a Bridge instance.
type Options struct {
	// Input is the command stream. Defaults to os.Stdin.
	Input io.Reader
	// Output is the response/event stream. Defaults to os.Stdout.
	Output io.Writer
	// Logger receives runtime diagnostics on stderr-side channels only.
	// Defaults to NoOp.
	Logger logging.Logger
}

// Bridge owns the receive loop: it reads framed commands, routes them
// through the dispatch table, and writes correlated responses. Lifecycle is
// Created (New) → Running (Run entry) → Stopped (input closed or shutdown).
type Bridge struct {
	table   *dispatch.Table
	reader  *wire.Reader
	writer  *wire.Writer
	logger  logging.Logger
	running atomic.Bool
}

var _ EventSink = (*Bridge)(nil)

// New constructs a Bridge for the given backend with optional overrides.
func New(backend Backend, optFns ...func(o *Options)) *Bridge {
	opts := Options{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	b := &Bridge{
		table:  dispatch.NewTable(backend.Handlers()),
		reader: wire.NewReader(opts.Input),
		writer: wire.NewWriter(opts.Output),
		logger: opts.Logger,
	}

	// Lifecycle built-ins resolve even when the backend does not declare
	// them; a backend declaration wins.
	b.table.SetDefault("ready", b.readyHandler)
	b.table.SetDefault("shutdown", b.shutdownHandler)

	if emitter, ok := backend.(EventEmitter); ok {
		emitter.SetEventSink(b)
	}
	if stopper, ok := backend.(Stopper); ok {
		stopper.SetStop(b.Stop)
	}
	return b
}

// Run executes the receive loop until the input stream closes, a shutdown
// command is processed, or ctx is canceled. On entry it dispatches an
// internal ready command (id 0) so the host observes a defined readiness
// signal before any other output. Handler failures are answered on the wire
// and never returned; only stream closure, context cancellation and write
// failures end the loop.
func (b *Bridge) Run(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("bridge running", "version", Version, "commands", len(b.table.Names()))

	resp, emit := b.dispatch(ctx, protocol.Command{Name: "ready", ID: 0, Params: map[string]any{}})
	if emit {
		if err := b.writeResponse(resp); err != nil {
			return fmt.Errorf("write ready response: %w", err)
		}
	}

	for b.running.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := b.reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			b.logger.Info("input stream closed")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		resp, emit := b.handle(ctx, line)
		if !emit {
			continue
		}
		if err := b.writeResponse(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	b.logger.Info("bridge stopped")
	return nil
}

// Stop ends the receive loop at its next iteration boundary. Cooperative:
// a handler already executing runs to completion first. Safe to call from
// any goroutine.
func (b *Bridge) Stop() {
	b.running.Store(false)
}

// Emit pushes an unsolicited event to the host, bypassing the
// request/response cycle. Safe to call from any goroutine, including during
// handler execution — in that case the event precedes the handler's
// response on the wire.
func (b *Bridge) Emit(name string, payload any) error {
	data, err := protocol.EncodeEvent(protocol.Event{Name: name, Payload: payload})
	if err != nil {
		b.logger.Error("event payload not serializable", "event", name, "error", err)
		return err
	}
	if err := b.writer.WriteFrame(data); err != nil {
		return fmt.Errorf("write event %q: %w", name, err)
	}
	b.logger.Debug("event emitted", "event", name)
	return nil
}

// handle decodes and dispatches one inbound frame. The boolean reports
// whether a response should be written (false when suppressed).
func (b *Bridge) handle(ctx context.Context, line []byte) (protocol.Response, bool) {
	cmd, err := protocol.DecodeCommand(line)
	if err != nil {
		// No correlation id is recoverable from undecodable input.
		b.logger.Warn("undecodable command", "error", err)
		return protocol.ErrorResponse(0, err.Error()), true
	}
	return b.dispatch(ctx, cmd)
}

func (b *Bridge) dispatch(ctx context.Context, cmd protocol.Command) (protocol.Response, bool) {
	h, err := b.table.Resolve(cmd.Name)
	if err != nil {
		b.logger.Warn("unresolvable command", "cmd", cmd.Name, "id", cmd.ID)
		return protocol.ErrorResponse(cmd.ID, err.Error()), true
	}

	result, err := dispatch.Invoke(ctx, cmd.Name, h, cmd.Params)
	if err != nil {
		b.logger.Warn("handler failed", "cmd", cmd.Name, "id", cmd.ID, "error", err)
		resp := protocol.ErrorResponse(cmd.ID, err.Error())
		var handlerErr *dispatch.HandlerError
		if errors.As(err, &handlerErr) {
			resp.Traceback = handlerErr.Traceback
		}
		return resp, true
	}

	if result == dispatch.NoResponse {
		b.logger.Debug("response suppressed", "cmd", cmd.Name, "id", cmd.ID)
		return protocol.Response{}, false
	}

	b.logger.Debug("command handled", "cmd", cmd.Name, "id", cmd.ID)
	return protocol.SuccessResponse(cmd.ID, result), true
}

func (b *Bridge) writeResponse(resp protocol.Response) error {
	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		// The handler produced a value json.Marshal rejects. Degrade to an
		// error response, which always encodes.
		data, err = protocol.EncodeResponse(protocol.ErrorResponse(resp.ID, err.Error()))
		if err != nil {
			return err
		}
	}
	return b.writer.WriteFrame(data)
}

// readyHandler answers the built-in health check issued automatically at
// startup and re-issuable by the host at any time.
func (b *Bridge) readyHandler(context.Context, map[string]any) (any, error) {
	return map[string]any{
		"status":         "ready",
		"go_version":     runtime.Version(),
		"bridge_version": Version,
	}, nil
}

// shutdownHandler stops the receive loop after the current iteration.
func (b *Bridge) shutdownHandler(context.Context, map[string]any) (any, error) {
	b.Stop()
	return map[string]any{"status": "shutdown"}, nil
}
