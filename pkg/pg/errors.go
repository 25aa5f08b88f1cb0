package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmptyConnectionString is returned by Connect when PG_CONN_URL is unset.
	ErrEmptyConnectionString = errors.New("empty postgres connection string, use PG_CONN_URL env var")
	ErrFailedToParseDBConfig = errors.New("failed to parse db config")
	// ErrFailedToOpenDBConnection wraps the last attempt's error once retries run out.
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsNotProvided    = errors.New("migrations filesystem not provided")
)

const foreignKeyViolation = "23503"

// IsNotFoundError detects pgx.ErrNoRows, including the error returned by
// pgx.CollectExactlyOneRow on an empty result.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsForeignKeyViolationError reports SQLSTATE 23503. The inbox and archive
// tables reference stored_messages, so storing an id that was never created
// in this database ends up here.
func IsForeignKeyViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
