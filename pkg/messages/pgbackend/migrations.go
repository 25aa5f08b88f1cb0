package pgbackend

import "embed"

// Migrations holds the goose migrations creating the backend's tables.
// Apply them with pg.Migrate(ctx, pool, cfg, Migrations, MigrationsDir, log).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations goose reads from.
const MigrationsDir = "migrations"
