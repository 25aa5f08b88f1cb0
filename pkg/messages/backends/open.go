package backends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/storedmessages/pkg/config"
	"github.com/dmitrymomot/storedmessages/pkg/logger"
	"github.com/dmitrymomot/storedmessages/pkg/messages"
	"github.com/dmitrymomot/storedmessages/pkg/messages/mongobackend"
	"github.com/dmitrymomot/storedmessages/pkg/messages/pgbackend"
	"github.com/dmitrymomot/storedmessages/pkg/messages/redisbackend"
	"github.com/dmitrymomot/storedmessages/pkg/mongo"
	"github.com/dmitrymomot/storedmessages/pkg/pg"
	"github.com/dmitrymomot/storedmessages/pkg/redis"
)

// CloseFunc releases the connections held by an opened backend.
type CloseFunc func() error

// Option configures Open.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	redis    *redis.Config
	postgres *pg.Config
	mongo    *mongo.Config
}

// WithLogger sets the logger used during startup and by the Store.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRedisConfig overrides the REDIS_* environment configuration.
func WithRedisConfig(cfg redis.Config) Option {
	return func(o *options) { o.redis = &cfg }
}

// WithPostgresConfig overrides the PG_* environment configuration.
func WithPostgresConfig(cfg pg.Config) Option {
	return func(o *options) { o.postgres = &cfg }
}

// WithMongoConfig overrides the MONGODB_* environment configuration.
func WithMongoConfig(cfg mongo.Config) Option {
	return func(o *options) { o.mongo = &cfg }
}

// Open connects to the engine named by cfg.Backend and returns the backend.
// Engine settings not passed as options are loaded from the environment;
// only the selected engine's settings are read. Postgres migrations are
// applied before returning.
func Open(ctx context.Context, cfg Config, opts ...Option) (messages.Backend, CloseFunc, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log := o.logger.With(logger.Backend(name))

	var (
		backend messages.Backend
		closeFn CloseFunc
		err     error
	)
	switch name {
	case Memory:
		backend, closeFn = messages.NewMemoryBackend(), func() error { return nil }
	case Redis:
		backend, closeFn, err = openRedis(ctx, cfg, o)
	case Postgres:
		backend, closeFn, err = openPostgres(ctx, o, log)
	case Mongo:
		backend, closeFn, err = openMongo(ctx, o)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to open stored messages backend", logger.Error(err))
		return nil, nil, errors.Join(ErrBackendNotReady, err)
	}

	log.InfoContext(ctx, "Stored messages backend ready")
	return backend, closeFn, nil
}

// OpenStore opens the backend and binds a Store to it.
func OpenStore(ctx context.Context, cfg Config, opts ...Option) (*messages.Store, CloseFunc, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	backend, closeFn, err := Open(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	store := messages.NewStore(backend,
		messages.WithLogger(o.logger),
		messages.WithArchive(cfg.Archive),
	)
	return store, closeFn, nil
}

func openRedis(ctx context.Context, cfg Config, o *options) (messages.Backend, CloseFunc, error) {
	rcfg, err := engineConfig(o.redis)
	if err != nil {
		return nil, nil, err
	}

	client, err := redis.Connect(ctx, rcfg)
	if err != nil {
		return nil, nil, err
	}
	return redisbackend.New(client, redisbackend.WithPrefix(cfg.Namespace)), client.Close, nil
}

func openPostgres(ctx context.Context, o *options, log *slog.Logger) (messages.Backend, CloseFunc, error) {
	pcfg, err := engineConfig(o.postgres)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pg.Connect(ctx, pcfg)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx, pool, pcfg, pgbackend.Migrations, pgbackend.MigrationsDir, log); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return pgbackend.New(pool), func() error { pool.Close(); return nil }, nil
}

func openMongo(ctx context.Context, o *options) (messages.Backend, CloseFunc, error) {
	mcfg, err := engineConfig(o.mongo)
	if err != nil {
		return nil, nil, err
	}

	db, err := mongo.ConnectDatabase(ctx, mcfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return db.Client().Disconnect(context.Background()) }

	backend, err := mongobackend.New(ctx, db)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return backend, closeFn, nil
}

// engineConfig returns the override when present, otherwise loads T from
// the environment.
func engineConfig[T any](override *T) (T, error) {
	if override != nil {
		return *override, nil
	}
	var cfg T
	err := config.Load(&cfg)
	return cfg, err
}
