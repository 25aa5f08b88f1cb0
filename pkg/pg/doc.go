// Package pg connects to the PostgreSQL database backing the relational
// message backend.
//
// It builds on github.com/jackc/pgx/v5 for connectivity and
// github.com/pressly/goose/v3 for schema migrations:
//
//   - Config is populated from environment variables via caarlos0/env.
//   - Connect opens a *pgxpool.Pool, retrying with linear back-off.
//   - Migrate applies goose migrations from an fs.FS, usually embedded.
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, pgbackend.Migrations, pgbackend.MigrationsDir, log); err != nil {
//	    return err
//	}
//
// IsNotFoundError and IsForeignKeyViolationError classify errors returned
// by pgx.
package pg
