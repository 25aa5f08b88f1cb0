package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
	"github.com/dmitrymomot/storedmessages/pkg/messages/backends"
)

func run(t *testing.T, store *messages.Store, args ...string) (string, error) {
	t.Helper()

	open := func(context.Context) (*messages.Store, backends.CloseFunc, error) {
		return store, func() error { return nil }, nil
	}

	var out bytes.Buffer
	cmd := newRootCmd(open, &out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeLines(t *testing.T, out string) []messageView {
	t.Helper()

	var views []messageView
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var v messageView
		require.NoError(t, json.Unmarshal([]byte(line), &v))
		views = append(views, v)
	}
	return views
}

func TestCLI_SendListRead(t *testing.T) {
	t.Parallel()

	store := messages.NewStore(messages.NewMemoryBackend())

	out, err := run(t, store, "send", "--user", "7", "--level", "warning", "--text", "disk almost full", "--url", "/disks")
	require.NoError(t, err)
	sent := decodeLines(t, out)
	require.Len(t, sent, 1)
	assert.Equal(t, "warning", sent[0].Level)
	assert.Equal(t, "/disks", sent[0].URL)

	_, err = run(t, store, "send", "--user", "7", "--text", "second")
	require.NoError(t, err)

	out, err = run(t, store, "inbox", "--user", "7")
	require.NoError(t, err)
	inbox := decodeLines(t, out)
	require.Len(t, inbox, 2)
	assert.Equal(t, "second", inbox[0].Text)
	assert.Equal(t, "disk almost full", inbox[1].Text)

	out, err = run(t, store, "read", "--user", "7", "--id", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "marked as read")

	out, err = run(t, store, "read", "--user", "7", "--id", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "already read")

	out, err = run(t, store, "archive", "--user", "7")
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, out), 2)
}

func TestCLI_SendErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "unknown level",
			args:    []string{"send", "--user", "1", "--level", "fatal", "--text", "x"},
			wantErr: messages.ErrMessageTypeNotSupported,
		},
		{
			name:    "several recipients",
			args:    []string{"send", "--user", "1,2", "--text", "x"},
			wantErr: messages.ErrNotSupportedYet,
		},
		{
			name:    "anonymous recipient",
			args:    []string{"send", "--user", "0", "--text", "x"},
			wantErr: messages.ErrInvalidRecipient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := run(t, messages.NewStore(messages.NewMemoryBackend()), tt.args...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCLI_PurgeAndFlush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := messages.NewStore(messages.NewMemoryBackend())
	_, err := store.AddMessage(ctx, 4, messages.LevelInfo, "hello")
	require.NoError(t, err)

	_, err = run(t, store, "purge", "--user", "4")
	require.NoError(t, err)
	inbox, err := store.Inbox(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	_, err = run(t, store, "flush")
	require.Error(t, err)
	archive, err := store.Archive(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, archive, 1)

	_, err = run(t, store, "flush", "--yes")
	require.NoError(t, err)
	archive, err = store.Archive(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, archive)
}

func TestCLI_SendNoArchive(t *testing.T) {
	t.Parallel()

	store := messages.NewStore(messages.NewMemoryBackend())
	_, err := run(t, store, "send", "--user", "2", "--text", "quiet", "--no-archive")
	require.NoError(t, err)

	inbox, err := store.Inbox(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)

	archive, err := store.Archive(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, archive)
}

func TestCLI_Migrate(t *testing.T) {
	t.Parallel()

	out, err := run(t, messages.NewStore(messages.NewMemoryBackend()), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "backend memory is ready")
}
