package messages

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryBackendName is the origin of messages created by MemoryBackend.
const MemoryBackendName = "memory"

// MemoryBackend is an in-process implementation of the Backend interface.
// Suitable for development and testing.
type MemoryBackend struct {
	lastID  atomic.Int64
	mu      sync.RWMutex
	inbox   map[UserID][]Message // oldest first
	archive map[UserID][]Message // oldest first
	now     func() time.Time
}

// NewMemoryBackend creates a new in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		inbox:   make(map[UserID][]Message),
		archive: make(map[UserID][]Message),
		now:     time.Now,
	}
}

func (b *MemoryBackend) Name() string { return MemoryBackendName }

func (b *MemoryBackend) CreateMessage(ctx context.Context, level Level, text string, opts ...MessageOption) (Message, error) {
	if !level.Valid() {
		return Message{}, ErrMessageTypeNotSupported
	}

	m, err := NewMessage(b.lastID.Add(1), level, text, b.now(), opts...)
	if err != nil {
		return Message{}, err
	}
	return m.WithOrigin(MemoryBackendName), nil
}

func (b *MemoryBackend) CanHandle(v any) bool {
	return CanHandle(MemoryBackendName, v)
}

func (b *MemoryBackend) InboxStore(ctx context.Context, users []UserID, msg any) error {
	m, err := PrepareStore(b, users, msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range Unique(users) {
		// Re-storing moves the entry to the newest position; a pair exists at most once.
		entries := slices.DeleteFunc(b.inbox[u], func(e Message) bool { return e.ID == m.ID })
		b.inbox[u] = append(entries, m)
	}
	return nil
}

func (b *MemoryBackend) InboxList(ctx context.Context, user UserID) ([]Message, error) {
	if user.IsAnonymous() {
		return []Message{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return newestFirst(b.inbox[user]), nil
}

func (b *MemoryBackend) InboxGet(ctx context.Context, user UserID, id int64) (Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, m := range b.inbox[user] {
		if m.ID == id {
			return m, nil
		}
	}
	return Message{}, ErrMessageDoesNotExist
}

func (b *MemoryBackend) InboxDelete(ctx context.Context, user UserID, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.inbox[user]
	i := slices.IndexFunc(entries, func(e Message) bool { return e.ID == id })
	if i < 0 {
		return ErrMessageDoesNotExist
	}

	b.inbox[user] = slices.Delete(entries, i, i+1)
	return nil
}

func (b *MemoryBackend) InboxPurge(ctx context.Context, user UserID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.inbox, user)
	return nil
}

func (b *MemoryBackend) ArchiveStore(ctx context.Context, users []UserID, msg any) error {
	m, err := PrepareStore(b, users, msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range Unique(users) {
		b.archive[u] = append(b.archive[u], m)
	}
	return nil
}

func (b *MemoryBackend) ArchiveList(ctx context.Context, user UserID) ([]Message, error) {
	if user.IsAnonymous() {
		return []Message{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return newestFirst(b.archive[user]), nil
}

func (b *MemoryBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inbox = make(map[UserID][]Message)
	b.archive = make(map[UserID][]Message)
	return nil
}

// newestFirst returns a reversed copy so callers never alias stored slices.
func newestFirst(entries []Message) []Message {
	out := make([]Message, len(entries))
	for i, m := range entries {
		out[len(entries)-1-i] = m
	}
	return out
}
