// Package mesh implements the mesh-network backend for the bridge. The
// network layer itself is stubbed: identities, destinations and messages are
// modeled and persisted, but no packets leave the machine. The package exists
// so hosts can develop against the full command surface before a real
// transport is wired underneath.
package mesh

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roninmesh/bridge"
	"github.com/roninmesh/bridge/dispatch"
	"github.com/roninmesh/bridge/internal/util"
	"github.com/roninmesh/bridge/logging"
)

// receivePollInterval is how often receive_message re-checks the store while
// waiting for its timeout to elapse.
const receivePollInterval = 50 * time.Millisecond

// Backend exposes the mesh command surface over the bridge protocol. Handler
// invocations are strictly sequential, so most fields are mutated without
// locking; Deliver is the one entry point that may run on another goroutine,
// so the peer table it updates has its own lock and the store and event sink
// it uses are safe for concurrent use.
type Backend struct {
	cfg         Config
	identity    *Identity
	destination *Destination
	store       *Store
	logger      logging.Logger

	peersMu sync.Mutex
	peers   map[string]time.Time

	sink bridge.EventSink
	stop func()
}

// Options configures a mesh Backend.
type Options struct {
	// Logger receives backend diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// New constructs an uninitialized mesh backend; most commands require init
// first.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{
		cfg:    DefaultConfig(),
		peers:  map[string]time.Time{},
		logger: opts.Logger,
	}
}

// Handlers declares the backend's command set.
func (b *Backend) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		"init":               b.init,
		"create_identity":    b.createIdentity,
		"load_identity":      b.loadIdentity,
		"save_identity":      b.saveIdentity,
		"get_identity":       b.getIdentity,
		"create_destination": b.createDestination,
		"announce":           b.announce,
		"send_message":       b.sendMessage,
		"receive_message":    b.receiveMessage,
		"get_status":         b.getStatus,
		"get_peers":          b.getPeers,
		"shutdown":           b.shutdown,
	}
}

// SetEventSink receives the bridge's event sink at construction.
func (b *Backend) SetEventSink(sink bridge.EventSink) { b.sink = sink }

// SetStop receives the bridge's stop function at construction.
func (b *Backend) SetStop(stop func()) { b.stop = stop }

func (b *Backend) init(ctx context.Context, params map[string]any) (any, error) {
	configPath, err := util.OptionalStringParam(params, "config_path", "")
	if err != nil {
		return nil, err
	}
	options, err := util.OptionalMapParam(params, "options")
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if configPath != "" {
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.applyOptions(options); err != nil {
		return nil, err
	}
	b.cfg = cfg

	store, err := OpenStore(ctx, filepath.Join(cfg.StoragePath, "messages.db"))
	if err != nil {
		return nil, err
	}
	if b.store != nil {
		b.store.Close()
	}
	b.store = store

	if b.identity == nil {
		b.identity = NewIdentity()
	}

	b.logger.Info("mesh initialized",
		"group_id", cfg.GroupID,
		"auto_interface", cfg.EnableAutoInterface,
		"storage", cfg.StoragePath,
	)

	return map[string]any{
		"status":         "initialized",
		"identity_hash":  b.identity.Hash,
		"group_id":       cfg.GroupID,
		"auto_interface": cfg.EnableAutoInterface,
	}, nil
}

func (b *Backend) createIdentity(context.Context, map[string]any) (any, error) {
	b.identity = NewIdentity()
	b.logger.Info("identity created", "hash", b.identity.Hash)
	return map[string]any{
		"hash":       b.identity.Hash,
		"created_at": b.identity.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (b *Backend) loadIdentity(_ context.Context, params map[string]any) (any, error) {
	path, err := util.StringParam(params, "path")
	if err != nil {
		return nil, err
	}
	ident, err := LoadIdentity(path)
	if err != nil {
		return nil, err
	}
	b.identity = ident
	return map[string]any{"hash": ident.Hash, "loaded_from": path}, nil
}

func (b *Backend) saveIdentity(_ context.Context, params map[string]any) (any, error) {
	if b.identity == nil {
		return nil, errors.New("Identity not initialized. Call init() or create_identity() first.")
	}
	path, err := util.StringParam(params, "path")
	if err != nil {
		return nil, err
	}
	if err := b.identity.Save(path); err != nil {
		return nil, err
	}
	return map[string]any{"hash": b.identity.Hash, "saved_to": path}, nil
}

func (b *Backend) getIdentity(context.Context, map[string]any) (any, error) {
	if b.identity == nil {
		return map[string]any{"hash": nil}, nil
	}
	return map[string]any{"hash": b.identity.Hash}, nil
}

func (b *Backend) createDestination(_ context.Context, params map[string]any) (any, error) {
	if b.identity == nil {
		return nil, errors.New("Identity not initialized. Call init() or create_identity() first.")
	}
	aspects, err := util.StringSliceParam(params, "aspects")
	if err != nil {
		return nil, err
	}
	appName, err := util.OptionalStringParam(params, "app_name", b.cfg.AppName)
	if err != nil {
		return nil, err
	}

	b.destination = newDestination(appName, aspects)
	return map[string]any{
		"hash":     b.destination.Hash,
		"app_name": b.destination.AppName,
		"aspects":  b.destination.Aspects,
	}, nil
}

// announce publishes the destination to the mesh. The stub pushes an
// announce event so hosts can observe the call; a real transport would also
// broadcast on the network.
func (b *Backend) announce(_ context.Context, params map[string]any) (any, error) {
	if b.destination == nil {
		return nil, errors.New("Destination not created. Call create_destination() first.")
	}
	appData, err := util.OptionalStringParam(params, "app_data", "")
	if err != nil {
		return nil, err
	}

	if b.sink != nil {
		payload := map[string]any{"destination": b.destination.Hash}
		if appData != "" {
			payload["app_data"] = appData
		}
		if err := b.sink.Emit("announce", payload); err != nil {
			return nil, fmt.Errorf("emit announce: %w", err)
		}
	}
	return map[string]any{"status": "announced"}, nil
}

func (b *Backend) sendMessage(ctx context.Context, params map[string]any) (any, error) {
	if b.store == nil {
		return nil, errors.New("Backend not initialized. Call init() first.")
	}
	if b.identity == nil {
		return nil, errors.New("Identity not initialized. Call init() or create_identity() first.")
	}
	destination, err := util.StringParam(params, "destination")
	if err != nil {
		return nil, err
	}
	content, err := util.StringParam(params, "content")
	if err != nil {
		return nil, err
	}
	title, err := util.OptionalStringParam(params, "title", "")
	if err != nil {
		return nil, err
	}
	fields, err := util.OptionalMapParam(params, "fields")
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = nil
	}

	msg := Message{
		Hash:        newMessageHash(),
		Direction:   "out",
		Source:      b.identity.Hash,
		Destination: destination,
		Title:       title,
		Content:     content,
		Fields:      fields,
		Timestamp:   time.Now().UTC(),
	}
	if err := b.store.Append(ctx, msg); err != nil {
		return nil, err
	}

	b.logger.Debug("message queued", "hash", msg.Hash, "destination", destination)
	return map[string]any{"hash": msg.Hash, "status": "queued"}, nil
}

// receiveMessage polls for the next unread inbound message, waiting up to
// timeout milliseconds before returning a null result. The wait blocks the
// whole receive loop, which is the documented cost of the sequential model;
// hosts wanting push delivery should rely on the message event instead.
func (b *Backend) receiveMessage(ctx context.Context, params map[string]any) (any, error) {
	if b.store == nil {
		return nil, errors.New("Backend not initialized. Call init() first.")
	}
	timeoutMS, err := util.OptionalIntParam(params, "timeout", 5000)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	for {
		msg, err := b.store.NextUnread(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return messagePayload(msg), nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(receivePollInterval):
		}
	}
}

func (b *Backend) getStatus(ctx context.Context, _ map[string]any) (any, error) {
	status := map[string]any{
		"available": true,
		"group_id":  b.cfg.GroupID,
	}
	if b.identity != nil {
		status["identity"] = b.identity.Hash
	} else {
		status["identity"] = nil
	}
	if b.destination != nil {
		status["destination"] = b.destination.Hash
	} else {
		status["destination"] = nil
	}
	if b.store != nil {
		outbound, unread, err := b.store.Counts(ctx)
		if err != nil {
			return nil, err
		}
		status["queued"] = outbound
		status["unread"] = unread
	}
	return status, nil
}

func (b *Backend) getPeers(context.Context, map[string]any) (any, error) {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()

	peers := make([]map[string]any, 0, len(b.peers))
	for hash, lastSeen := range b.peers {
		peers = append(peers, map[string]any{
			"hash":      hash,
			"last_seen": lastSeen.Format(time.RFC3339),
		})
	}
	return map[string]any{"peers": peers}, nil
}

// shutdown overrides the built-in handler to tear the stub down before the
// loop stops.
func (b *Backend) shutdown(context.Context, map[string]any) (any, error) {
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			b.logger.Warn("message store close failed", "error", err)
		}
		b.store = nil
	}
	if b.stop != nil {
		b.stop()
	}
	b.logger.Info("mesh shut down")
	return map[string]any{"status": "shutdown"}, nil
}

// Deliver injects an inbound message as if it arrived from the mesh: it is
// persisted for receive_message and pushed immediately as a message event.
// Unlike command handlers it may be called from any goroutine.
func (b *Backend) Deliver(ctx context.Context, msg Message) error {
	if b.store == nil {
		return errors.New("Backend not initialized. Call init() first.")
	}
	if msg.Hash == "" {
		msg.Hash = newMessageHash()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.Direction = "in"

	if err := b.store.Append(ctx, msg); err != nil {
		return err
	}
	if msg.Source != "" {
		b.peersMu.Lock()
		b.peers[msg.Source] = msg.Timestamp
		b.peersMu.Unlock()
	}
	if b.sink != nil {
		if err := b.sink.Emit("message", messagePayload(&msg)); err != nil {
			return fmt.Errorf("emit message event: %w", err)
		}
	}
	return nil
}

func newMessageHash() string {
	id := uuid.New()
	return id.String()
}

func messagePayload(msg *Message) map[string]any {
	payload := map[string]any{
		"hash":      msg.Hash,
		"content":   msg.Content,
		"timestamp": msg.Timestamp.Format(time.RFC3339),
	}
	if msg.Title != "" {
		payload["title"] = msg.Title
	}
	if msg.Source != "" {
		payload["source"] = msg.Source
	}
	if msg.Fields != nil {
		payload["fields"] = msg.Fields
	}
	return payload
}
