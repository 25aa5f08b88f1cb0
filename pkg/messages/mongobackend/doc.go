// Package mongobackend implements messages.Backend on MongoDB.
//
// Collections: messages (one document per message), inbox and archive
// (one entry per user and message, ordered by a sequence number), and
// counters (message ids and entry sequence, advanced with $inc).
//
// Multi-recipient stores are ordered bulk writes. Outside a replica-set
// transaction they are not atomic; the first failing recipient stops the
// batch and is reported in the returned error.
package mongobackend
