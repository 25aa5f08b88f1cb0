package redisbackend

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
)

// Key layout shared with every other reader of the store:
//
//	user:<id>:notifications   inbox
//	user:<id>:archive         archive
//	stored_messages:next_id   message id counter
const (
	inboxKeyFormat   = "user:%d:notifications"
	archiveKeyFormat = "user:%d:archive"
	counterKeyName   = "stored_messages:next_id"
)

type keyFunc func(prefix string, user messages.UserID) string

// InboxKey returns the list key holding the user's inbox.
func InboxKey(user messages.UserID) string {
	return inboxKey("", user)
}

// ArchiveKey returns the list key holding the user's archive.
func ArchiveKey(user messages.UserID) string {
	return archiveKey("", user)
}

func inboxKey(prefix string, user messages.UserID) string {
	return prefix + fmt.Sprintf(inboxKeyFormat, int64(user))
}

func archiveKey(prefix string, user messages.UserID) string {
	return prefix + fmt.Sprintf(archiveKeyFormat, int64(user))
}

func counterKey(prefix string) string {
	return prefix + counterKeyName
}

// globEscaper escapes the characters SCAN MATCH treats as glob syntax, so a
// prefix only ever matches itself.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"?", `\?`,
	"[", `\[`,
	"]", `\]`,
)

func flushPatterns(prefix string) []string {
	prefix = globEscaper.Replace(prefix)
	return []string{
		prefix + "user:*:notifications",
		prefix + "user:*:archive",
	}
}
