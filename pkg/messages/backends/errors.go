package backends

import "errors"

var (
	ErrUnknownBackend  = errors.New("unknown stored messages backend")
	ErrBackendNotReady = errors.New("stored messages backend is not ready")
)
