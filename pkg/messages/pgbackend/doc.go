// Package pgbackend implements messages.Backend on PostgreSQL.
//
// Messages are rows of stored_messages; inbox and archive membership are
// rows of stored_messages_inbox and stored_messages_archive. Lists are
// queries ordered by entry id, newest first. A user's inbox holds a message
// at most once (unique user_id, message_id).
//
// Writes for several users are a single INSERT ... SELECT unnest(...)
// statement, which PostgreSQL runs atomically.
//
// The schema ships as embedded goose migrations:
//
//	if err := pg.Migrate(ctx, pool, cfg, pgbackend.Migrations, pgbackend.MigrationsDir, log); err != nil {
//	    return err
//	}
//	backend := pgbackend.New(pool)
package pgbackend
