package messages

import (
	"context"
	"fmt"
)

// Backend is the contract every storage engine satisfies. All engines must
// behave identically from the caller's point of view: lists are newest
// first, lookups of missing entries return ErrMessageDoesNotExist, and
// payloads the backend did not produce are rejected with
// ErrMessageTypeNotSupported.
type Backend interface {
	// Name identifies the backend. Messages carry it as their origin.
	Name() string

	// CreateMessage allocates a new message with a backend-assigned id and
	// the current time.
	CreateMessage(ctx context.Context, level Level, text string, opts ...MessageOption) (Message, error)

	// CanHandle reports whether v is a message produced by this backend.
	CanHandle(v any) bool

	// InboxStore adds msg to the inbox of every user. The call is atomic:
	// either all entries are created or none.
	InboxStore(ctx context.Context, users []UserID, msg any) error

	// InboxList returns the user's inbox, most recently stored first.
	InboxList(ctx context.Context, user UserID) ([]Message, error)

	// InboxGet returns one message from the user's inbox.
	InboxGet(ctx context.Context, user UserID, id int64) (Message, error)

	// InboxDelete removes one message from the user's inbox.
	InboxDelete(ctx context.Context, user UserID, id int64) error

	// InboxPurge removes every inbox entry of the user.
	InboxPurge(ctx context.Context, user UserID) error

	// ArchiveStore appends msg to the archive of every user.
	ArchiveStore(ctx context.Context, users []UserID, msg any) error

	// ArchiveList returns the user's archive, most recently stored first.
	ArchiveList(ctx context.Context, user UserID) ([]Message, error)

	// Flush drops every message the backend holds, for all users.
	// Administrative and test use only.
	Flush(ctx context.Context) error
}

// AsMessage unwraps Message and *Message values.
func AsMessage(v any) (Message, bool) {
	switch m := v.(type) {
	case Message:
		return m, true
	case *Message:
		if m == nil {
			return Message{}, false
		}
		return *m, true
	default:
		return Message{}, false
	}
}

// CanHandle is the shared CanHandle implementation: v must be a message with
// a valid level whose origin is the named backend.
func CanHandle(backend string, v any) bool {
	m, ok := AsMessage(v)
	if !ok {
		return false
	}
	return m.origin == backend && m.Level.Valid()
}

// PrepareStore validates the input of InboxStore and ArchiveStore before any
// write happens. It returns the message to store.
func PrepareStore(b Backend, users []UserID, v any) (Message, error) {
	if !b.CanHandle(v) {
		return Message{}, fmt.Errorf("%w: %T", ErrMessageTypeNotSupported, v)
	}
	m, _ := AsMessage(v)

	for _, u := range users {
		if u.IsAnonymous() {
			return Message{}, fmt.Errorf("%w: anonymous user", ErrInvalidRecipient)
		}
	}

	return m, nil
}

// Unique returns users without duplicates, keeping the first occurrence.
func Unique(users []UserID) []UserID {
	seen := make(map[UserID]struct{}, len(users))
	out := make([]UserID, 0, len(users))
	for _, u := range users {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
