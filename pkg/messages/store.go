package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/storedmessages/pkg/logger"
)

// Store is the single entry point used by calling code. It is bound to one
// backend for its whole lifetime and adds the delivery policy on top of it.
type Store struct {
	backend Backend
	archive bool
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for the Store.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithArchive controls whether delivered messages are also recorded in the
// recipient's archive. Enabled by default.
func WithArchive(enabled bool) StoreOption {
	return func(s *Store) {
		s.archive = enabled
	}
}

// NewStore creates a Store bound to backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		archive: true,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(logger.Backend(backend.Name()))
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// AddMessage delivers a new message to a single user: the message is created,
// archived (unless disabled) and put into the user's inbox.
//
// The archive and inbox writes are separate backend calls. When the inbox
// write fails the archive entry stays, and retrying creates a second message
// with its own archive entry. The user never sees the failed attempt in the
// inbox.
func (s *Store) AddMessage(ctx context.Context, user UserID, level Level, text string, opts ...MessageOption) (Message, error) {
	if user.IsAnonymous() {
		return Message{}, fmt.Errorf("%w: anonymous user", ErrInvalidRecipient)
	}

	m, err := s.backend.CreateMessage(ctx, level, text, opts...)
	if err != nil {
		return Message{}, s.fail(ctx, "create message", err)
	}

	recipients := []UserID{user}
	if s.archive {
		if err := s.backend.ArchiveStore(ctx, recipients, m); err != nil {
			return Message{}, s.fail(ctx, "archive message", err, logger.MessageID(m.ID), logger.UserID(user))
		}
	}
	if err := s.backend.InboxStore(ctx, recipients, m); err != nil {
		return Message{}, s.fail(ctx, "store message to inbox", err, logger.MessageID(m.ID), logger.UserID(user))
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "Message delivered",
		logger.MessageID(m.ID),
		logger.UserID(user),
		logger.Level(m.Level.String()),
	)

	return m, nil
}

// AddMessageFor delivers a new message to the given users. Only a single
// recipient is supported: fan-out to several users fails with
// ErrNotSupportedYet until a partial-failure policy exists.
func (s *Store) AddMessageFor(ctx context.Context, users []UserID, level Level, text string, opts ...MessageOption) error {
	switch len(users) {
	case 0:
		return fmt.Errorf("%w: no recipients", ErrInvalidRecipient)
	case 1:
		_, err := s.AddMessage(ctx, users[0], level, text, opts...)
		return err
	default:
		return fmt.Errorf("%w: delivery to %d recipients", ErrNotSupportedYet, len(users))
	}
}

// BroadcastMessage would deliver a message to every user. Enumerating all
// users is not defined yet, so it always fails with ErrNotSupportedYet.
func (s *Store) BroadcastMessage(ctx context.Context, level Level, text string, opts ...MessageOption) error {
	return fmt.Errorf("%w: broadcast", ErrNotSupportedYet)
}

// MarkRead removes msg from the user's inbox. It returns true when the entry
// was removed and false when it was already gone; a missing entry is not an
// error here, unlike Backend.InboxDelete.
func (s *Store) MarkRead(ctx context.Context, user UserID, msg Message) (bool, error) {
	err := s.backend.InboxDelete(ctx, user, msg.ID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrMessageDoesNotExist):
		return false, nil
	default:
		return false, s.fail(ctx, "mark message as read", err, logger.MessageID(msg.ID), logger.UserID(user))
	}
}

// MarkAllRead empties the user's inbox. The archive is left untouched.
func (s *Store) MarkAllRead(ctx context.Context, user UserID) error {
	if err := s.backend.InboxPurge(ctx, user); err != nil {
		return s.fail(ctx, "purge inbox", err, logger.UserID(user))
	}
	return nil
}

// Inbox returns the user's unread messages, newest first.
func (s *Store) Inbox(ctx context.Context, user UserID) ([]Message, error) {
	return s.backend.InboxList(ctx, user)
}

// InboxMessage returns a single unread message.
func (s *Store) InboxMessage(ctx context.Context, user UserID, id int64) (Message, error) {
	return s.backend.InboxGet(ctx, user, id)
}

// Archive returns every message archived for the user, newest first.
func (s *Store) Archive(ctx context.Context, user UserID) ([]Message, error) {
	return s.backend.ArchiveList(ctx, user)
}

// fail logs storage faults and returns err unchanged. Contract errors are
// caller mistakes and are not logged.
func (s *Store) fail(ctx context.Context, op string, err error, attrs ...slog.Attr) error {
	if errors.Is(err, ErrStorage) {
		attrs = append(attrs, logger.Op(op), logger.Error(err))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Storage backend failure", attrs...)
	}
	return err
}
