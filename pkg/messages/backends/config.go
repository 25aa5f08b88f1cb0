package backends

// Config selects the storage engine. It is read once at startup.
type Config struct {
	Backend   string `env:"STORED_MESSAGES_BACKEND" envDefault:"redis"` // Backend is one of memory, redis, postgres, mongo.
	Namespace string `env:"STORED_MESSAGES_NAMESPACE"`                  // Namespace prefixes Redis keys.
	Archive   bool   `env:"STORED_MESSAGES_ARCHIVE" envDefault:"true"`  // Archive mirrors delivered messages to the archive.
}

const (
	Memory   = "memory"
	Redis    = "redis"
	Postgres = "postgres"
	Mongo    = "mongo"
)
