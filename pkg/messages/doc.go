// Package messages provides a per-user message inbox and archive with
// pluggable storage backends.
//
// A message is created once by a backend, stored to one or more user
// inboxes, optionally mirrored to the users' archives, and later marked as
// read (removed from the inbox) or purged. The archive is append-only.
//
// # Architecture
//
//   - Message: immutable value (id, level, text, date, url, tags)
//   - Encode/Decode: JSON codec for backends that store opaque blobs
//   - Backend: the contract every storage engine satisfies
//   - Store: the facade calling code uses, bound to one backend
//
// Engines live in sub-packages: pgbackend (PostgreSQL rows), redisbackend
// (Redis lists keyed by user) and mongobackend (MongoDB documents).
// MemoryBackend in this package is an in-process engine for development
// and tests. The messagestest package holds the conformance suite all of
// them pass.
//
// # Basic Usage
//
//	store := messages.NewStore(messages.NewMemoryBackend())
//
//	msg, err := store.AddMessage(ctx, userID, messages.LevelError, "disk full")
//	if err != nil {
//	    return err
//	}
//
//	inbox, _ := store.Inbox(ctx, userID) // [msg]
//
//	ok, _ := store.MarkRead(ctx, userID, msg) // true
//	ok, _ = store.MarkRead(ctx, userID, msg)  // false, already read
//
// # Errors
//
// Backends report ErrMessageTypeNotSupported for payloads they did not
// produce and ErrMessageDoesNotExist for missing inbox entries. Engine
// faults are joined with ErrStorage so they are never mistaken for a
// missing entry. AddMessageFor with more than one recipient and
// BroadcastMessage fail with ErrNotSupportedYet.
package messages
