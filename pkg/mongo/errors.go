package mongo

import "errors"

var (
	// ErrEmptyConnectionURL is returned by Connect when MONGODB_URL is blank.
	ErrEmptyConnectionURL = errors.New("empty mongo connection URL")

	// ErrFailedToConnectToMongo wraps option validation errors and the last
	// failed ping.
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
)
