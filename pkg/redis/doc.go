// Package redis connects to the Redis server backing the list-store
// message backend.
//
// It wraps github.com/redis/go-redis/v9 with a retrying Connect. Config
// fields are populated from environment
// variables via github.com/caarlos0/env.
//
// # Usage
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	backend := redisbackend.New(client)
//
// # Errors
//
// Sentinel errors (ErrRedisNotReady, ErrFailedToParseRedisConnString, ...)
// are joined with the underlying go-redis error using errors.Join.
package redis
