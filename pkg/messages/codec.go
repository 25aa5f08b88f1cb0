package messages

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// wireMessage is the encoded form shared by every blob-oriented backend.
// Field order is fixed, which keeps Encode deterministic.
type wireMessage struct {
	ID    int64     `json:"id"`
	Level Level     `json:"level"`
	Text  string    `json:"message"`
	Date  time.Time `json:"date"`
	URL   string    `json:"url,omitempty"`
	Tags  string    `json:"tags,omitempty"`
}

// Encode serializes every attribute of m, id and timestamp included.
// The same message always encodes to the same bytes. Invalid UTF-8 is
// rejected rather than replaced, so Decode always returns an equal message.
func Encode(m Message) ([]byte, error) {
	if !m.Level.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMessageTypeNotSupported, m.Level)
	}
	if err := m.validateText(); err != nil {
		return nil, err
	}

	return json.Marshal(wireMessage{
		ID:    m.ID,
		Level: m.Level,
		Text:  m.Text,
		Date:  m.Date.UTC(),
		URL:   m.URL,
		Tags:  m.Tags,
	})
}

// Decode is the inverse of Encode. The returned message has no origin.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, errors.Join(ErrMalformedMessage, err)
	}
	if !w.Level.Valid() {
		return Message{}, fmt.Errorf("%w: unknown level %d", ErrMalformedMessage, int(w.Level))
	}

	return Message{
		ID:    w.ID,
		Level: w.Level,
		Text:  w.Text,
		Date:  w.Date.UTC(),
		URL:   w.URL,
		Tags:  w.Tags,
	}, nil
}
