package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storedmessages/pkg/config"
)

type testDefaults struct {
	Backend string        `env:"STORED_MESSAGES_TEST_BACKEND" envDefault:"redis"`
	Retries int           `env:"STORED_MESSAGES_TEST_RETRIES" envDefault:"3"`
	Timeout time.Duration `env:"STORED_MESSAGES_TEST_TIMEOUT" envDefault:"5s"`
}

type testOverrides struct {
	Backend string `env:"STORED_MESSAGES_TEST_OVERRIDE" envDefault:"redis"`
	Archive bool   `env:"STORED_MESSAGES_TEST_ARCHIVE" envDefault:"true"`
}

type testCached struct {
	Value string `env:"STORED_MESSAGES_TEST_CACHED"`
}

type testRequired struct {
	URL string `env:"STORED_MESSAGES_TEST_REQUIRED,required"`
}

type testFromFile struct {
	FromFile string `env:"STORED_MESSAGES_TEST_FROM_FILE"`
	Priority string `env:"STORED_MESSAGES_TEST_PRIORITY"`
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("STORED_MESSAGES_TEST_BACKEND")
	os.Unsetenv("STORED_MESSAGES_TEST_RETRIES")
	os.Unsetenv("STORED_MESSAGES_TEST_TIMEOUT")

	var cfg testDefaults
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "redis", cfg.Backend)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORED_MESSAGES_TEST_OVERRIDE", "postgres")
	t.Setenv("STORED_MESSAGES_TEST_ARCHIVE", "false")

	var cfg testOverrides
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "postgres", cfg.Backend)
	assert.False(t, cfg.Archive)
}

func TestLoad_Cached(t *testing.T) {
	config.ResetCache()
	t.Setenv("STORED_MESSAGES_TEST_CACHED", "first")

	var first testCached
	require.NoError(t, config.Load(&first))

	t.Setenv("STORED_MESSAGES_TEST_CACHED", "second")

	var second testCached
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)

	config.ResetCache()

	var third testCached
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Value)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("STORED_MESSAGES_TEST_REQUIRED")

	var cfg testRequired
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *testDefaults
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	os.Unsetenv("STORED_MESSAGES_TEST_REQUIRED")

	assert.Panics(t, func() {
		var cfg testRequired
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	os.Unsetenv("STORED_MESSAGES_TEST_FROM_FILE")
	t.Setenv("STORED_MESSAGES_TEST_PRIORITY", "process_value")
	t.Cleanup(func() { os.Unsetenv("STORED_MESSAGES_TEST_FROM_FILE") })

	require.NoError(t, config.LoadEnv("testdata/.env.test"))

	var cfg testFromFile
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from_file", cfg.FromFile)
	assert.Equal(t, "process_value", cfg.Priority)

	err := config.LoadEnv("testdata/missing.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
