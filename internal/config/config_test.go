package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, ":3000", c.Addr())
	assert.Equal(t, "bcrypt", c.CredentialScheme)
	assert.Equal(t, StoreFS, c.Store)
	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, SessionMemory, c.SessionStore)
	assert.Equal(t, 24*time.Hour, c.SessionLifetime)
	assert.Equal(t, "userDB", c.MongoDatabase)
	assert.False(t, c.GoogleEnabled())
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"unknown scheme", func(c *Config) { c.CredentialScheme = "rot13" }, "unknown credential scheme"},
		{"encrypted needs secret", func(c *Config) { c.CredentialScheme = "encrypted" }, "SECRET is required"},
		{"google needs secret", func(c *Config) {
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
		}, "SECRET is required for Google login"},
		{"half google config", func(c *Config) { c.GoogleClientID = "id" }, "must be set together"},
		{"unknown store", func(c *Config) { c.Store = "s3" }, "unknown store"},
		{"postgres needs url", func(c *Config) { c.Store = StorePostgres }, "DATABASE_URL is required"},
		{"mongo needs url", func(c *Config) { c.Store = StoreMongo }, "DATABASE_URL is required"},
		{"datastore needs project", func(c *Config) { c.Store = StoreDatastore }, "DATASTORE_PROJECT is required"},
		{"unknown session store", func(c *Config) { c.SessionStore = "disk" }, "unknown session store"},
		{"bad lifetime", func(c *Config) { c.SessionLifetime = 0 }, "invalid session lifetime"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tc.modify(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.Store = "s3"
	c.SessionStore = "disk"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
	assert.Contains(t, err.Error(), "unknown session store")
}

func TestGoogleEnabled(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.GoogleClientID = "id"
	assert.False(t, c.GoogleEnabled())
	c.GoogleClientSecret = "secret"
	c.Secret = "state"
	assert.True(t, c.GoogleEnabled())
	assert.NoError(t, c.Validate())
}

// parse runs a cli app with the config flags and returns the bound config
func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	c := &Config{}
	c.LoadDefaults()
	app := &cli.App{
		Name:   "test",
		Flags:  Flags(c),
		Action: func(*cli.Context) error { return nil },
	}
	require.NoError(t, app.RunContext(context.Background(), append([]string{"test"}, args...)))
	return c
}

func TestFlagsKeepDefaults(t *testing.T) {
	c := parse(t)
	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, StoreFS, c.Store)
	assert.Equal(t, 24*time.Hour, c.SessionLifetime)
}

func TestFlagsFromArgs(t *testing.T) {
	c := parse(t,
		"--bind", "127.0.0.1",
		"--port", "8080",
		"--store", "sqlite",
		"--database-url", "file:secrets.db",
		"--session-lifetime", "2h",
		"--cookie-secure",
	)
	assert.Equal(t, "127.0.0.1:8080", c.Addr())
	assert.Equal(t, StoreSQLite, c.Store)
	assert.Equal(t, "file:secrets.db", c.DatabaseURL)
	assert.Equal(t, 2*time.Hour, c.SessionLifetime)
	assert.True(t, c.CookieSecure)
	assert.NoError(t, c.Validate())
}

func TestFlagsFromEnv(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("SECRET", "s3cret")
	t.Setenv("CLIENT_ID", "client-id")
	t.Setenv("CLIENT_SECRET", "client-secret")
	t.Setenv("CREDENTIAL_SCHEME", "encrypted")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("LOG_FORMAT", "json")

	c := parse(t)
	assert.Equal(t, 4000, c.Port)
	assert.Equal(t, "s3cret", c.Secret)
	assert.Equal(t, "client-id", c.GoogleClientID)
	assert.Equal(t, "client-secret", c.GoogleClientSecret)
	assert.Equal(t, "encrypted", c.CredentialScheme)
	assert.Equal(t, SessionRedis, c.SessionStore)
	assert.Equal(t, "redis://cache:6379/1", c.RedisURL)
	assert.Equal(t, "json", c.LogFormat)
	assert.True(t, c.GoogleEnabled())
	assert.NoError(t, c.Validate())
}

func TestFlagsArgsOverrideEnv(t *testing.T) {
	t.Setenv("STORE", "mongo")
	c := parse(t, "--store", "fs")
	assert.Equal(t, StoreFS, c.Store)
}
