// Package messagestest contains the conformance suite every messages.Backend
// implementation runs in its own tests.
package messagestest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
)

const (
	user      messages.UserID = 1
	otherUser messages.UserID = 2
)

// Factory returns a backend with no stored messages.
type Factory func(t *testing.T) messages.Backend

// RunBackendSuite checks the contract shared by all backends. Subtests run
// sequentially and every one of them starts from a flushed backend.
func RunBackendSuite(t *testing.T, newBackend Factory) {
	t.Helper()

	run := func(name string, fn func(t *testing.T, ctx context.Context, b messages.Backend)) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)
			require.NoError(t, b.Flush(ctx))
			fn(t, ctx, b)
		})
	}

	run("create message", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m, err := b.CreateMessage(ctx, messages.LevelError, "A message for you",
			messages.WithURL("https://example.com/x"), messages.WithTags("billing"))
		require.NoError(t, err)

		assert.NotZero(t, m.ID)
		assert.Equal(t, messages.LevelError, m.Level)
		assert.Equal(t, "A message for you", m.Text)
		assert.Equal(t, "https://example.com/x", m.URL)
		assert.Equal(t, "billing", m.Tags)
		assert.False(t, m.Date.IsZero())
		assert.Equal(t, b.Name(), m.Origin())

		next, err := b.CreateMessage(ctx, messages.LevelInfo, "another")
		require.NoError(t, err)
		assert.NotEqual(t, m.ID, next.ID)
	})

	run("create message rejects unknown level", func(t *testing.T, ctx context.Context, b messages.Backend) {
		_, err := b.CreateMessage(ctx, messages.Level(7), "nope")
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)
	})

	run("create message rejects invalid UTF-8", func(t *testing.T, ctx context.Context, b messages.Backend) {
		_, err := b.CreateMessage(ctx, messages.LevelInfo, "disk \xff full")
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)

		_, err = b.CreateMessage(ctx, messages.LevelInfo, "ok", messages.WithURL("/x\xc3"))
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)

		_, err = b.CreateMessage(ctx, messages.LevelInfo, "ok", messages.WithTags("\xfe"))
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)

		m, err := b.CreateMessage(ctx, messages.LevelInfo, "café ☕")
		require.NoError(t, err)
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, m.Equal(got[0]))
	})

	run("can handle", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")

		assert.True(t, b.CanHandle(m))
		assert.True(t, b.CanHandle(&m))
		assert.False(t, b.CanHandle(map[string]any{}))
		assert.False(t, b.CanHandle(nil))
		assert.False(t, b.CanHandle((*messages.Message)(nil)))
		assert.False(t, b.CanHandle(m.WithOrigin("elsewhere")))

		foreign, err := messages.NewMessage(m.ID, m.Level, m.Text, m.Date)
		require.NoError(t, err)
		assert.False(t, b.CanHandle(foreign))
	})

	run("inbox store", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")

		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, m, got[0])
	})

	run("inbox store rejects foreign payloads", func(t *testing.T, ctx context.Context, b messages.Backend) {
		err := b.InboxStore(ctx, nil, map[string]any{})
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)

		err = b.InboxStore(ctx, []messages.UserID{user}, messages.Message{})
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)
	})

	run("inbox store rejects anonymous recipient atomically", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")

		err := b.InboxStore(ctx, []messages.UserID{user, messages.Anonymous}, m)
		assert.ErrorIs(t, err, messages.ErrInvalidRecipient)

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	run("inbox store to several users", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "for both")

		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user, otherUser}, m))

		for _, u := range []messages.UserID{user, otherUser} {
			got, err := b.InboxList(ctx, u)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, m, got[0])
		}
	})

	run("inbox keeps a message once per user", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "twice")

		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user, user}, m))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	run("inbox re-store moves the message to the top", func(t *testing.T, ctx context.Context, b messages.Backend) {
		first := mustCreate(t, ctx, b, "first")
		second := mustCreate(t, ctx, b, "second")

		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, first))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, second))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, first))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{first, second}, got)
	})

	run("inbox list is newest first", func(t *testing.T, ctx context.Context, b messages.Backend) {
		first := mustCreate(t, ctx, b, "A message for you")
		second := mustCreate(t, ctx, b, "Another message for you")

		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, first))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, second))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{second, first}, got)
	})

	run("inbox list for anonymous and unknown users", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		got, err := b.InboxList(ctx, messages.Anonymous)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = b.InboxList(ctx, 999)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	run("inbox get", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		got, err := b.InboxGet(ctx, user, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m, got)

		_, err = b.InboxGet(ctx, user, -1)
		assert.ErrorIs(t, err, messages.ErrMessageDoesNotExist)

		_, err = b.InboxGet(ctx, otherUser, m.ID)
		assert.ErrorIs(t, err, messages.ErrMessageDoesNotExist)
	})

	run("inbox delete", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")
		keep := mustCreate(t, ctx, b, "keep me")
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, keep))

		require.NoError(t, b.InboxDelete(ctx, user, m.ID))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{keep}, got)

		err = b.InboxDelete(ctx, user, m.ID)
		assert.ErrorIs(t, err, messages.ErrMessageDoesNotExist)

		err = b.InboxDelete(ctx, user, -1)
		assert.ErrorIs(t, err, messages.ErrMessageDoesNotExist)
		assert.False(t, errors.Is(err, messages.ErrStorage))
	})

	run("inbox delete leaves the archive", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")
		require.NoError(t, b.ArchiveStore(ctx, []messages.UserID{user}, m))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		require.NoError(t, b.InboxDelete(ctx, user, m.ID))

		archived, err := b.ArchiveList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{m}, archived)
	})

	run("inbox purge", func(t *testing.T, ctx context.Context, b messages.Backend) {
		first := mustCreate(t, ctx, b, "A message for you")
		second := mustCreate(t, ctx, b, "Another message for you")
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user, otherUser}, first))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, second))

		require.NoError(t, b.InboxPurge(ctx, user))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = b.InboxList(ctx, otherUser)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		assert.NoError(t, b.InboxPurge(ctx, user))
		assert.NoError(t, b.InboxPurge(ctx, messages.Anonymous))
	})

	run("archive store", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")

		require.NoError(t, b.ArchiveStore(ctx, []messages.UserID{user}, m))

		got, err := b.ArchiveList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{m}, got)

		err = b.ArchiveStore(ctx, nil, map[string]any{})
		assert.ErrorIs(t, err, messages.ErrMessageTypeNotSupported)
	})

	run("archive list is newest first", func(t *testing.T, ctx context.Context, b messages.Backend) {
		first := mustCreate(t, ctx, b, "A message for you")
		second := mustCreate(t, ctx, b, "Another message for you")

		require.NoError(t, b.ArchiveStore(ctx, []messages.UserID{user}, first))
		require.NoError(t, b.ArchiveStore(ctx, []messages.UserID{user}, second))

		got, err := b.ArchiveList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{second, first}, got)

		got, err = b.ArchiveList(ctx, messages.Anonymous)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	run("archive survives inbox purge", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")
		require.NoError(t, b.ArchiveStore(ctx, []messages.UserID{user}, m))
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		require.NoError(t, b.InboxPurge(ctx, user))

		got, err := b.ArchiveList(ctx, user)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	run("flush", func(t *testing.T, ctx context.Context, b messages.Backend) {
		m := mustCreate(t, ctx, b, "A message for you")
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user, otherUser}, m))
		require.NoError(t, b.ArchiveStore(ctx, []messages.UserID{user}, m))

		require.NoError(t, b.Flush(ctx))

		for _, u := range []messages.UserID{user, otherUser} {
			got, err := b.InboxList(ctx, u)
			require.NoError(t, err)
			assert.Empty(t, got)
		}
		got, err := b.ArchiveList(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	run("mark read through the store", func(t *testing.T, ctx context.Context, b messages.Backend) {
		store := messages.NewStore(b)
		m := mustCreate(t, ctx, b, "disk full")
		require.NoError(t, b.InboxStore(ctx, []messages.UserID{user}, m))

		got, err := b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []messages.Message{m}, got)

		ok, err := store.MarkRead(ctx, user, m)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = b.InboxList(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, got)

		ok, err = store.MarkRead(ctx, user, m)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func mustCreate(t *testing.T, ctx context.Context, b messages.Backend, text string) messages.Message {
	t.Helper()
	m, err := b.CreateMessage(ctx, messages.LevelError, text)
	require.NoError(t, err)
	return m
}
