package messages

import "errors"

var (
	// ErrMessageTypeNotSupported is returned when a backend is given a payload
	// or level it cannot represent.
	ErrMessageTypeNotSupported = errors.New("message type not supported")

	// ErrMessageDoesNotExist is returned by precise lookups and deletes when
	// the inbox entry is absent.
	ErrMessageDoesNotExist = errors.New("message does not exist")

	// ErrNotSupportedYet marks features that are intentionally unimplemented:
	// multi-recipient delivery and broadcasting.
	ErrNotSupportedYet = errors.New("operation not supported yet")

	// ErrInvalidRecipient is returned when a write names no usable recipient.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrMalformedMessage is returned when an encoded message cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrStorage wraps faults reported by the storage engine itself
	// (connectivity, protocol, constraint violations).
	ErrStorage = errors.New("storage engine failure")
)

// StorageError joins err with ErrStorage. Nil stays nil.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrStorage, err)
}
