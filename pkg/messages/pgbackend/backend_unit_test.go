package pgbackend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
	"github.com/dmitrymomot/storedmessages/pkg/messages/pgbackend"
)

type execCall struct {
	sql  string
	args []any
}

// recordingDB records Exec calls and answers them with a fixed tag or error.
type recordingDB struct {
	execs   []execCall
	tag     pgconn.CommandTag
	execErr error
	nextID  int64
}

func (d *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, execCall{sql: sql, args: args})
	return d.tag, d.execErr
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (d *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.nextID++
	return idRow(d.nextID)
}

type idRow int64

func (r idRow) Scan(dest ...any) error {
	*dest[0].(*int64) = int64(r)
	return nil
}

func create(t *testing.T, b *pgbackend.Backend) messages.Message {
	t.Helper()
	m, err := b.CreateMessage(context.Background(), messages.LevelInfo, "hello")
	require.NoError(t, err)
	return m
}

func TestInboxStore_Statement(t *testing.T) {
	t.Parallel()

	db := &recordingDB{}
	b := pgbackend.New(db)
	m := create(t, b)

	require.NoError(t, b.InboxStore(context.Background(), []messages.UserID{3, 1, 3, 2}, m))
	require.Len(t, db.execs, 1)

	call := db.execs[0]
	assert.Contains(t, call.sql, "WITH ORDINALITY")
	assert.Contains(t, call.sql, "ON CONFLICT (user_id, message_id) DO UPDATE")
	assert.Contains(t, call.sql, "nextval(pg_get_serial_sequence('stored_messages_inbox', 'id'))")
	assert.Equal(t, []any{[]int64{3, 1, 2}, m.ID}, call.args)
}

func TestArchiveStore_AppendsEveryTime(t *testing.T) {
	t.Parallel()

	db := &recordingDB{}
	b := pgbackend.New(db)
	m := create(t, b)

	require.NoError(t, b.ArchiveStore(context.Background(), []messages.UserID{1}, m))
	require.Len(t, db.execs, 1)
	assert.NotContains(t, db.execs[0].sql, "ON CONFLICT")
}

func TestStore_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		execErr error
		want    error
	}{
		{name: "foreign key", execErr: &pgconn.PgError{Code: "23503"}, want: messages.ErrMessageTypeNotSupported},
		{name: "connection", execErr: errors.New("conn closed"), want: messages.ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := &recordingDB{execErr: tt.execErr}
			b := pgbackend.New(db)
			m := create(t, b)

			err := b.InboxStore(context.Background(), []messages.UserID{1}, m)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStore_NoWriteOnInvalidInput(t *testing.T) {
	t.Parallel()

	db := &recordingDB{}
	b := pgbackend.New(db)
	m := create(t, b)

	assert.ErrorIs(t, b.InboxStore(context.Background(), []messages.UserID{1, messages.Anonymous}, m), messages.ErrInvalidRecipient)
	assert.ErrorIs(t, b.InboxStore(context.Background(), []messages.UserID{1}, m.WithOrigin("redis")), messages.ErrMessageTypeNotSupported)
	assert.NoError(t, b.InboxStore(context.Background(), nil, m))
	assert.Empty(t, db.execs)
}

func TestInboxDelete_RowsAffected(t *testing.T) {
	t.Parallel()

	missing := pgbackend.New(&recordingDB{tag: pgconn.NewCommandTag("DELETE 0")})
	assert.ErrorIs(t, missing.InboxDelete(context.Background(), 1, 9), messages.ErrMessageDoesNotExist)

	found := pgbackend.New(&recordingDB{tag: pgconn.NewCommandTag("DELETE 1")})
	assert.NoError(t, found.InboxDelete(context.Background(), 1, 9))
}
