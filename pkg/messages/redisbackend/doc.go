// Package redisbackend implements messages.Backend on Redis lists.
//
// Every user owns two lists, user:<id>:notifications (inbox) and
// user:<id>:archive, whose elements are messages encoded with
// messages.Encode. New entries are pushed to the head, so LRANGE 0 -1
// returns the newest message first.
//
// Redis has no secondary index over list elements: InboxGet and InboxDelete
// decode the whole inbox to find an id, and deletion removes the matching
// element by value with LREM. The backend relies on Redis for atomicity:
// LPUSH, LREM and INCR are atomic, and multi-recipient stores run in one
// MULTI/EXEC transaction, so either every recipient gets the message or
// none does.
package redisbackend
