package config

import "errors"

var (
	ErrNilPointer = errors.New("nil pointer provided to config loader")

	// ErrParsingConfig wraps caarlos0/env parse failures: missing required
	// variables and values that do not convert to the field type.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrLoadingEnvFile is returned by LoadEnv when an explicitly named file
	// cannot be read. A missing default .env is not an error.
	ErrLoadingEnvFile = errors.New("failed to load env file")
)
