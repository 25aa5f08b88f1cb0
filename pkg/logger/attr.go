package logger

import "log/slog"

// Error records err under the key "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records a recipient under "user_id". Nil yields an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// MessageID records a stored message id under "message_id". Nil yields an
// empty Attr.
func MessageID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("message_id", id)
}

func Backend(name string) slog.Attr {
	return slog.String("backend", name)
}

// Level records a message level under "message_level" so it does not
// shadow the record's own level.
func Level(name string) slog.Attr {
	return slog.String("message_level", name)
}

// Op names the store operation that produced the record.
func Op(name string) slog.Attr {
	return slog.String("op", name)
}
