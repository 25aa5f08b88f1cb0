package pgbackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
	"github.com/dmitrymomot/storedmessages/pkg/pg"
)

// Name is the origin of messages created by this backend.
const Name = "postgres"

// DB is the subset of *pgxpool.Pool and pgx.Tx the backend needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Backend stores messages as rows and inbox/archive membership as join rows.
type Backend struct {
	db  DB
	now func() time.Time
}

// New creates a backend. The schema from Migrations must already be applied.
func New(db DB) *Backend {
	return &Backend{db: db, now: time.Now}
}

func (b *Backend) Name() string { return Name }

const insertMessageSQL = `
INSERT INTO stored_messages (level, text, url, tags, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

// CreateMessage inserts the message row; the id comes from its BIGSERIAL.
func (b *Backend) CreateMessage(ctx context.Context, level messages.Level, text string, opts ...messages.MessageOption) (messages.Message, error) {
	m, err := messages.NewMessage(0, level, text, b.now(), opts...)
	if err != nil {
		return messages.Message{}, err
	}

	if err := b.db.QueryRow(ctx, insertMessageSQL, int(m.Level), m.Text, m.URL, m.Tags, m.Date).Scan(&m.ID); err != nil {
		return messages.Message{}, messages.StorageError(err)
	}
	return m.WithOrigin(Name), nil
}

func (b *Backend) CanHandle(v any) bool {
	return messages.CanHandle(Name, v)
}

// Re-storing an existing pair gives it a fresh entry id, moving it to the
// top of the inbox like the other backends do.
const inboxStoreSQL = `
INSERT INTO stored_messages_inbox (user_id, message_id)
SELECT u.user_id, $2 FROM unnest($1::bigint[]) WITH ORDINALITY AS u(user_id, n) ORDER BY u.n
ON CONFLICT (user_id, message_id) DO UPDATE
SET id = nextval(pg_get_serial_sequence('stored_messages_inbox', 'id')), created_at = now()`

const archiveStoreSQL = `
INSERT INTO stored_messages_archive (user_id, message_id)
SELECT u.user_id, $2 FROM unnest($1::bigint[]) WITH ORDINALITY AS u(user_id, n) ORDER BY u.n`

// InboxStore inserts one join row per user in a single statement, so the
// rows are created for every user or for none.
func (b *Backend) InboxStore(ctx context.Context, users []messages.UserID, msg any) error {
	return b.store(ctx, inboxStoreSQL, users, msg)
}

// ArchiveStore inserts one archive row per user in a single statement.
func (b *Backend) ArchiveStore(ctx context.Context, users []messages.UserID, msg any) error {
	return b.store(ctx, archiveStoreSQL, users, msg)
}

func (b *Backend) store(ctx context.Context, query string, users []messages.UserID, msg any) error {
	m, err := messages.PrepareStore(b, users, msg)
	if err != nil {
		return err
	}
	users = messages.Unique(users)
	if len(users) == 0 {
		return nil
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = int64(u)
	}

	if _, err := b.db.Exec(ctx, query, ids, m.ID); err != nil {
		if pg.IsForeignKeyViolationError(err) {
			// The message row lives in another database.
			return errors.Join(messages.ErrMessageTypeNotSupported, err)
		}
		return messages.StorageError(err)
	}
	return nil
}

const selectColumns = `m.id, m.level, m.text, m.url, m.tags, m.created_at`

var (
	inboxListSQL = `SELECT ` + selectColumns + `
FROM stored_messages_inbox e JOIN stored_messages m ON m.id = e.message_id
WHERE e.user_id = $1
ORDER BY e.id DESC`

	archiveListSQL = `SELECT ` + selectColumns + `
FROM stored_messages_archive e JOIN stored_messages m ON m.id = e.message_id
WHERE e.user_id = $1
ORDER BY e.id DESC`

	inboxGetSQL = `SELECT ` + selectColumns + `
FROM stored_messages_inbox e JOIN stored_messages m ON m.id = e.message_id
WHERE e.user_id = $1 AND e.message_id = $2`
)

func (b *Backend) InboxList(ctx context.Context, user messages.UserID) ([]messages.Message, error) {
	return b.list(ctx, inboxListSQL, user)
}

func (b *Backend) ArchiveList(ctx context.Context, user messages.UserID) ([]messages.Message, error) {
	return b.list(ctx, archiveListSQL, user)
}

func (b *Backend) list(ctx context.Context, query string, user messages.UserID) ([]messages.Message, error) {
	if user.IsAnonymous() {
		return []messages.Message{}, nil
	}

	rows, err := b.db.Query(ctx, query, int64(user))
	if err != nil {
		return nil, messages.StorageError(err)
	}

	out, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, messages.StorageError(err)
	}
	if out == nil {
		out = []messages.Message{}
	}
	return out, nil
}

func (b *Backend) InboxGet(ctx context.Context, user messages.UserID, id int64) (messages.Message, error) {
	if user.IsAnonymous() {
		return messages.Message{}, messages.ErrMessageDoesNotExist
	}

	rows, err := b.db.Query(ctx, inboxGetSQL, int64(user), id)
	if err != nil {
		return messages.Message{}, messages.StorageError(err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	switch {
	case pg.IsNotFoundError(err):
		return messages.Message{}, messages.ErrMessageDoesNotExist
	case err != nil:
		return messages.Message{}, messages.StorageError(err)
	}
	return m, nil
}

// InboxDelete removes the join row; zero affected rows means the entry was
// not there.
func (b *Backend) InboxDelete(ctx context.Context, user messages.UserID, id int64) error {
	tag, err := b.db.Exec(ctx,
		`DELETE FROM stored_messages_inbox WHERE user_id = $1 AND message_id = $2`, int64(user), id)
	if err != nil {
		return messages.StorageError(err)
	}
	if tag.RowsAffected() == 0 {
		return messages.ErrMessageDoesNotExist
	}
	return nil
}

func (b *Backend) InboxPurge(ctx context.Context, user messages.UserID) error {
	if user.IsAnonymous() {
		return nil
	}
	_, err := b.db.Exec(ctx, `DELETE FROM stored_messages_inbox WHERE user_id = $1`, int64(user))
	return messages.StorageError(err)
}

// Flush truncates all three tables and restarts the id sequences.
func (b *Backend) Flush(ctx context.Context) error {
	_, err := b.db.Exec(ctx,
		`TRUNCATE stored_messages_inbox, stored_messages_archive, stored_messages RESTART IDENTITY`)
	return messages.StorageError(err)
}

func scanMessage(row pgx.CollectableRow) (messages.Message, error) {
	var (
		id        int64
		level     int
		text      string
		url       string
		tags      string
		createdAt time.Time
	)
	if err := row.Scan(&id, &level, &text, &url, &tags, &createdAt); err != nil {
		return messages.Message{}, err
	}

	m, err := messages.NewMessage(id, messages.Level(level), text, createdAt,
		messages.WithURL(url), messages.WithTags(tags))
	if err != nil {
		return messages.Message{}, fmt.Errorf("message %d: %w", id, err)
	}
	return m.WithOrigin(Name), nil
}
