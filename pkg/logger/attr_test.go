package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storedmessages/pkg/logger"
)

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want any
	}{
		{"user id", logger.UserID(int64(7)), "user_id", int64(7)},
		{"message id", logger.MessageID(int64(42)), "message_id", int64(42)},
		{"backend", logger.Backend("redis"), "backend", "redis"},
		{"level", logger.Level("error"), "message_level", "error"},
		{"op", logger.Op("mark read"), "op", "mark read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.Any())
		})
	}

	assert.True(t, logger.UserID(nil).Equal(slog.Attr{}))
	assert.True(t, logger.MessageID(nil).Equal(slog.Attr{}))
}
