package messages

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Level is the message severity. Integer values are stable across backends
// and are what gets persisted.
type Level int

const (
	LevelInfo    Level = 120
	LevelSuccess Level = 125
	LevelWarning Level = 130
	LevelError   Level = 140
)

var levelNames = map[Level]string{
	LevelInfo:    "info",
	LevelSuccess: "success",
	LevelWarning: "warning",
	LevelError:   "error",
}

// Valid reports whether l belongs to the closed set of supported levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel converts a level name ("info", "success", "warning", "error")
// into a Level. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown level %q", ErrMessageTypeNotSupported, s)
}

// UserID identifies a message recipient.
type UserID int64

// Anonymous is the unauthenticated user. It never has an inbox or archive.
const Anonymous UserID = 0

// IsAnonymous reports whether the id is the anonymous user.
func (u UserID) IsAnonymous() bool {
	return u == Anonymous
}

// Message is an immutable notification. Values are created by a Backend and
// carry the name of that backend as their origin.
type Message struct {
	ID    int64
	Level Level
	Text  string
	Date  time.Time
	URL   string
	Tags  string

	origin string
}

// MessageOption sets optional message attributes.
type MessageOption func(*Message)

// WithURL attaches a link to the message.
func WithURL(url string) MessageOption {
	return func(m *Message) {
		m.URL = url
	}
}

// WithTags attaches free-form tags to the message.
func WithTags(tags string) MessageOption {
	return func(m *Message) {
		m.Tags = tags
	}
}

// NewMessage builds a message with a caller-assigned id. Backends use it
// when allocating new messages; date is normalized to UTC with microsecond
// precision so every engine stores it without loss. Text, URL and tags must
// be valid UTF-8.
func NewMessage(id int64, level Level, text string, date time.Time, opts ...MessageOption) (Message, error) {
	if !level.Valid() {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageTypeNotSupported, level)
	}

	m := Message{
		ID:    id,
		Level: level,
		Text:  text,
		Date:  normalizeDate(date),
	}
	for _, opt := range opts {
		opt(&m)
	}

	if err := m.validateText(); err != nil {
		return Message{}, err
	}

	return m, nil
}

func (m Message) validateText() error {
	switch {
	case !utf8.ValidString(m.Text):
		return fmt.Errorf("%w: text is not valid UTF-8", ErrMessageTypeNotSupported)
	case !utf8.ValidString(m.URL):
		return fmt.Errorf("%w: url is not valid UTF-8", ErrMessageTypeNotSupported)
	case !utf8.ValidString(m.Tags):
		return fmt.Errorf("%w: tags are not valid UTF-8", ErrMessageTypeNotSupported)
	}
	return nil
}

// Origin returns the name of the backend that produced the message, or an
// empty string for messages built outside of a backend.
func (m Message) Origin() string {
	return m.origin
}

// WithOrigin returns a copy of m bound to the named backend.
func (m Message) WithOrigin(backend string) Message {
	m.origin = backend
	return m
}

// Equal reports whether both messages carry the same attributes.
// Origin is not an attribute.
func (m Message) Equal(other Message) bool {
	return m.ID == other.ID &&
		m.Level == other.Level &&
		m.Text == other.Text &&
		m.Date.Equal(other.Date) &&
		m.URL == other.URL &&
		m.Tags == other.Tags
}

func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}
