package redis

import "errors"

var (
	// ErrEmptyConnectionURL is returned by Connect when REDIS_URL is blank.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")

	// ErrFailedToParseRedisConnString wraps redis.ParseURL failures.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady is returned when no ping succeeded within the retry
	// budget or the connect timeout.
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")
)
