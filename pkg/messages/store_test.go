package messages_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
)

// brokenBackend fails every write with a storage fault.
type brokenBackend struct {
	*messages.MemoryBackend
}

var errConnRefused = errors.New("connection refused")

func (b brokenBackend) InboxDelete(ctx context.Context, user messages.UserID, id int64) error {
	return messages.StorageError(errConnRefused)
}

func (b brokenBackend) InboxStore(ctx context.Context, users []messages.UserID, msg any) error {
	return messages.StorageError(errConnRefused)
}

func (b brokenBackend) InboxPurge(ctx context.Context, user messages.UserID) error {
	return messages.StorageError(errConnRefused)
}

func TestStore_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := messages.NewMemoryBackend()
	store := messages.NewStore(backend)

	const u messages.UserID = 10

	m, err := backend.CreateMessage(ctx, messages.LevelError, "disk full")
	require.NoError(t, err)
	require.NoError(t, backend.InboxStore(ctx, []messages.UserID{u}, m))

	inbox, err := store.Inbox(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []messages.Message{m}, inbox)

	ok, err := store.MarkRead(ctx, u, m)
	require.NoError(t, err)
	assert.True(t, ok)

	inbox, err = store.Inbox(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	ok, err = store.MarkRead(ctx, u, m)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AddMessageFor(t *testing.T) {
	t.Parallel()

	const (
		u1 messages.UserID = 1
		u2 messages.UserID = 2
	)

	t.Run("multiple recipients are not supported", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := messages.NewStore(messages.NewMemoryBackend())

		err := store.AddMessageFor(ctx, []messages.UserID{u1, u2}, messages.LevelError, "multi")
		assert.ErrorIs(t, err, messages.ErrNotSupportedYet)

		for _, u := range []messages.UserID{u1, u2} {
			inbox, err := store.Inbox(ctx, u)
			require.NoError(t, err)
			assert.Empty(t, inbox)
		}
	})

	t.Run("single recipient", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := messages.NewStore(messages.NewMemoryBackend())

		err := store.AddMessageFor(ctx, []messages.UserID{u1}, messages.LevelError, "single",
			messages.WithURL("/alerts"))
		require.NoError(t, err)

		inbox, err := store.Inbox(ctx, u1)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, "single", inbox[0].Text)
		assert.Equal(t, messages.LevelError, inbox[0].Level)
		assert.Equal(t, "/alerts", inbox[0].URL)

		other, err := store.Inbox(ctx, u2)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("no recipients", func(t *testing.T) {
		t.Parallel()

		store := messages.NewStore(messages.NewMemoryBackend())
		err := store.AddMessageFor(context.Background(), nil, messages.LevelInfo, "nobody")
		assert.ErrorIs(t, err, messages.ErrInvalidRecipient)
	})

	t.Run("unknown level", func(t *testing.T) {
		t.Parallel()

		store := messages.NewStore(messages.NewMemoryBackend())
		err := store.AddMessageFor(context.Background(), []messages.UserID{u1}, messages.Level(1), "bad")
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)
	})
}

func TestStore_AddMessage(t *testing.T) {
	t.Parallel()

	const u messages.UserID = 5

	t.Run("archives by default", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := messages.NewStore(messages.NewMemoryBackend())

		m, err := store.AddMessage(ctx, u, messages.LevelInfo, "hello")
		require.NoError(t, err)

		archive, err := store.Archive(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{m}, archive)

		got, err := store.InboxMessage(ctx, u, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	})

	t.Run("archive disabled", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := messages.NewStore(messages.NewMemoryBackend(), messages.WithArchive(false))

		_, err := store.AddMessage(ctx, u, messages.LevelInfo, "hello")
		require.NoError(t, err)

		archive, err := store.Archive(ctx, u)
		require.NoError(t, err)
		assert.Empty(t, archive)

		inbox, err := store.Inbox(ctx, u)
		require.NoError(t, err)
		assert.Len(t, inbox, 1)
	})

	t.Run("anonymous recipient", func(t *testing.T) {
		t.Parallel()

		store := messages.NewStore(messages.NewMemoryBackend())
		_, err := store.AddMessage(context.Background(), messages.Anonymous, messages.LevelInfo, "hello")
		assert.ErrorIs(t, err, messages.ErrInvalidRecipient)
	})
}

func TestStore_BroadcastMessage(t *testing.T) {
	t.Parallel()

	store := messages.NewStore(messages.NewMemoryBackend())
	err := store.BroadcastMessage(context.Background(), messages.LevelInfo, "one for all")
	assert.ErrorIs(t, err, messages.ErrNotSupportedYet)
}

func TestStore_MarkAllRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := messages.NewStore(messages.NewMemoryBackend())

	for _, text := range []string{"a", "b", "c"} {
		_, err := store.AddMessage(ctx, 1, messages.LevelInfo, text)
		require.NoError(t, err)
	}

	require.NoError(t, store.MarkAllRead(ctx, 1))
	require.NoError(t, store.MarkAllRead(ctx, messages.Anonymous))

	inbox, err := store.Inbox(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	archive, err := store.Archive(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, archive, 3)
}

func TestStore_StorageFaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend := brokenBackend{messages.NewMemoryBackend()}
	store := messages.NewStore(backend, messages.WithLogger(log))

	m, err := backend.CreateMessage(ctx, messages.LevelInfo, "hi")
	require.NoError(t, err)

	ok, err := store.MarkRead(ctx, 1, m)
	assert.False(t, ok)
	assert.ErrorIs(t, err, messages.ErrStorage)
	assert.ErrorIs(t, err, errConnRefused)
	assert.NotErrorIs(t, err, messages.ErrMessageDoesNotExist)

	_, err = store.AddMessage(ctx, 1, messages.LevelInfo, "hi")
	assert.ErrorIs(t, err, messages.ErrStorage)

	err = store.MarkAllRead(ctx, 1)
	assert.ErrorIs(t, err, messages.ErrStorage)

	assert.Contains(t, buf.String(), "Storage backend failure")
	assert.Contains(t, buf.String(), `"backend":"memory"`)
	assert.Contains(t, buf.String(), `"op":"mark message as read"`)
}

func TestStore_AddMessage_InboxFailureKeepsArchive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := brokenBackend{messages.NewMemoryBackend()}
	store := messages.NewStore(backend)

	_, err := store.AddMessage(ctx, 5, messages.LevelInfo, "first try")
	require.ErrorIs(t, err, messages.ErrStorage)
	_, err = store.AddMessage(ctx, 5, messages.LevelInfo, "first try")
	require.ErrorIs(t, err, messages.ErrStorage)

	inbox, err := backend.InboxList(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	archive, err := store.Archive(ctx, 5)
	require.NoError(t, err)
	require.Len(t, archive, 2)
	assert.NotEqual(t, archive[0].ID, archive[1].ID)
}
