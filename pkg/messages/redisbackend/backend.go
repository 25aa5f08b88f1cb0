package redisbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
)

// Name is the origin of messages created by this backend.
const Name = "redis"

const scanBatchSize = 500

// Backend stores each user's inbox and archive as a Redis list of encoded
// messages, newest at the head.
type Backend struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix namespaces every key. The default is no prefix, which keeps
// keys readable by other clients of the same store.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// New creates a backend on top of an established client.
func New(client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string { return Name }

// CreateMessage allocates the id with INCR on the counter key.
func (b *Backend) CreateMessage(ctx context.Context, level messages.Level, text string, opts ...messages.MessageOption) (messages.Message, error) {
	if !level.Valid() {
		return messages.Message{}, fmt.Errorf("%w: %s", messages.ErrMessageTypeNotSupported, level)
	}

	id, err := b.client.Incr(ctx, counterKey(b.prefix)).Result()
	if err != nil {
		return messages.Message{}, messages.StorageError(err)
	}

	m, err := messages.NewMessage(id, level, text, b.now(), opts...)
	if err != nil {
		return messages.Message{}, err
	}
	return m.WithOrigin(Name), nil
}

func (b *Backend) CanHandle(v any) bool {
	return messages.CanHandle(Name, v)
}

// InboxStore pushes the message to every inbox in one MULTI/EXEC block.
// An existing copy of the same message is removed first, so a pair is
// stored at most once.
func (b *Backend) InboxStore(ctx context.Context, users []messages.UserID, msg any) error {
	return b.store(ctx, users, msg, inboxKey, true)
}

// ArchiveStore pushes the message to every archive in one MULTI/EXEC block.
func (b *Backend) ArchiveStore(ctx context.Context, users []messages.UserID, msg any) error {
	return b.store(ctx, users, msg, archiveKey, false)
}

func (b *Backend) store(ctx context.Context, users []messages.UserID, msg any, key keyFunc, dedupe bool) error {
	m, err := messages.PrepareStore(b, users, msg)
	if err != nil {
		return err
	}
	users = messages.Unique(users)
	if len(users) == 0 {
		return nil
	}

	blob, err := messages.Encode(m)
	if err != nil {
		return err
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, u := range users {
			k := key(b.prefix, u)
			if dedupe {
				pipe.LRem(ctx, k, 0, blob)
			}
			pipe.LPush(ctx, k, blob)
		}
		return nil
	})
	return messages.StorageError(err)
}

func (b *Backend) InboxList(ctx context.Context, user messages.UserID) ([]messages.Message, error) {
	return b.list(ctx, user, inboxKey)
}

func (b *Backend) ArchiveList(ctx context.Context, user messages.UserID) ([]messages.Message, error) {
	return b.list(ctx, user, archiveKey)
}

func (b *Backend) list(ctx context.Context, user messages.UserID, key keyFunc) ([]messages.Message, error) {
	if user.IsAnonymous() {
		return []messages.Message{}, nil
	}

	raw, err := b.client.LRange(ctx, key(b.prefix, user), 0, -1).Result()
	if err != nil {
		return nil, messages.StorageError(err)
	}

	out := make([]messages.Message, 0, len(raw))
	for _, item := range raw {
		m, err := messages.Decode([]byte(item))
		if err != nil {
			return nil, messages.StorageError(err)
		}
		out = append(out, m.WithOrigin(Name))
	}
	return out, nil
}

// InboxGet scans the inbox list and decodes every element; lists have no
// secondary index.
func (b *Backend) InboxGet(ctx context.Context, user messages.UserID, id int64) (messages.Message, error) {
	m, _, err := b.find(ctx, user, id)
	return m, err
}

// InboxDelete finds the element carrying id and removes it by value with LREM.
func (b *Backend) InboxDelete(ctx context.Context, user messages.UserID, id int64) error {
	_, raw, err := b.find(ctx, user, id)
	if err != nil {
		return err
	}

	removed, err := b.client.LRem(ctx, inboxKey(b.prefix, user), 1, raw).Result()
	if err != nil {
		return messages.StorageError(err)
	}
	if removed == 0 {
		// A concurrent delete won the race.
		return messages.ErrMessageDoesNotExist
	}
	return nil
}

func (b *Backend) find(ctx context.Context, user messages.UserID, id int64) (messages.Message, string, error) {
	if user.IsAnonymous() {
		return messages.Message{}, "", messages.ErrMessageDoesNotExist
	}

	raw, err := b.client.LRange(ctx, inboxKey(b.prefix, user), 0, -1).Result()
	if err != nil {
		return messages.Message{}, "", messages.StorageError(err)
	}

	for _, item := range raw {
		m, err := messages.Decode([]byte(item))
		if err != nil {
			return messages.Message{}, "", messages.StorageError(err)
		}
		if m.ID == id {
			return m.WithOrigin(Name), item, nil
		}
	}
	return messages.Message{}, "", messages.ErrMessageDoesNotExist
}

// InboxPurge deletes the whole inbox key. Missing keys are fine.
func (b *Backend) InboxPurge(ctx context.Context, user messages.UserID) error {
	if user.IsAnonymous() {
		return nil
	}
	return messages.StorageError(b.client.Del(ctx, inboxKey(b.prefix, user)).Err())
}

// Flush deletes every inbox, archive and the id counter under the backend's
// prefix. Keys are found with SCAN, so other data in the same database is
// left alone.
func (b *Backend) Flush(ctx context.Context) error {
	for _, pattern := range flushPatterns(b.prefix) {
		var cursor uint64
		for {
			keys, next, err := b.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
			if err != nil {
				return messages.StorageError(err)
			}
			if len(keys) > 0 {
				if err := b.client.Del(ctx, keys...).Err(); err != nil {
					return messages.StorageError(err)
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
	}

	return messages.StorageError(b.client.Del(ctx, counterKey(b.prefix)).Err())
}
