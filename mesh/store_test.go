package mesh

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAppendAndNextUnread(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Message{
		Hash:      "m1",
		Direction: "in",
		Source:    "peer-a",
		Content:   "first",
		Fields:    map[string]any{"k": "v"},
		Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, store.Append(ctx, Message{
		Hash:      "m2",
		Direction: "in",
		Content:   "second",
		Timestamp: time.Now().UTC().Add(time.Second),
	}))

	msg, err := store.NextUnread(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "m1", msg.Hash)
	assert.Equal(t, "first", msg.Content)
	assert.Equal(t, "peer-a", msg.Source)
	assert.Equal(t, map[string]any{"k": "v"}, msg.Fields)

	// Oldest-first, each message delivered once.
	msg, err = store.NextUnread(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "m2", msg.Hash)

	msg, err = store.NextUnread(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestStoreOutboundNotDelivered(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Message{
		Hash:        "out1",
		Direction:   "out",
		Destination: "peer-b",
		Content:     "hello",
		Timestamp:   time.Now().UTC(),
	}))

	msg, err := store.NextUnread(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)

	outbound, unread, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, outbound)
	assert.Equal(t, 0, unread)
}

func TestStoreDuplicateHashRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	msg := Message{Hash: "dup", Direction: "in", Content: "x", Timestamp: time.Now().UTC()}
	require.NoError(t, store.Append(ctx, msg))
	assert.Error(t, store.Append(ctx, msg))
}
