package config

import (
	"github.com/urfave/cli/v2"
)

// Flags binds every field of c to a flag and its environment variable.
// Call LoadDefaults first; the current values become the flag defaults.
func Flags(c *Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bind",
			Usage:       "Host or address to listen on",
			Value:       c.Bind,
			Destination: &c.Bind,
		},
		&cli.IntFlag{
			Name:        "port",
			Usage:       "Port to listen on",
			EnvVars:     []string{"PORT"},
			Value:       c.Port,
			Destination: &c.Port,
		},
		&cli.StringFlag{
			Name:        "secret",
			Usage:       "Key for encrypted credentials and oauth state signing",
			EnvVars:     []string{"SECRET"},
			Value:       c.Secret,
			Destination: &c.Secret,
		},
		&cli.StringFlag{
			Name:        "google-client-id",
			Usage:       "Google OAuth client id, enables Google login",
			EnvVars:     []string{"CLIENT_ID"},
			Value:       c.GoogleClientID,
			Destination: &c.GoogleClientID,
		},
		&cli.StringFlag{
			Name:        "google-client-secret",
			Usage:       "Google OAuth client secret",
			EnvVars:     []string{"CLIENT_SECRET"},
			Value:       c.GoogleClientSecret,
			Destination: &c.GoogleClientSecret,
		},
		&cli.StringFlag{
			Name:        "google-callback-url",
			Usage:       "Redirect URL registered with Google",
			EnvVars:     []string{"GOOGLE_CALLBACK_URL"},
			Value:       c.GoogleCallbackURL,
			Destination: &c.GoogleCallbackURL,
		},
		&cli.StringFlag{
			Name:        "credential-scheme",
			Usage:       "How passwords are stored: plaintext, encrypted or bcrypt",
			EnvVars:     []string{"CREDENTIAL_SCHEME"},
			Value:       c.CredentialScheme,
			Destination: &c.CredentialScheme,
		},
		&cli.StringFlag{
			Name:        "store",
			Usage:       "User store: fs, sqlite, postgres, mongo or datastore",
			EnvVars:     []string{"STORE"},
			Value:       c.Store,
			Destination: &c.Store,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "DSN or URI of the sqlite, postgres or mongo store",
			EnvVars:     []string{"DATABASE_URL"},
			Value:       c.DatabaseURL,
			Destination: &c.DatabaseURL,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory of the fs store",
			EnvVars:     []string{"DATA_DIR"},
			Value:       c.DataDir,
			Destination: &c.DataDir,
		},
		&cli.StringFlag{
			Name:        "session-store",
			Usage:       "Session store: memory or redis",
			EnvVars:     []string{"SESSION_STORE"},
			Value:       c.SessionStore,
			Destination: &c.SessionStore,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL of the session store",
			EnvVars:     []string{"REDIS_URL"},
			Value:       c.RedisURL,
			Destination: &c.RedisURL,
		},
		&cli.DurationFlag{
			Name:        "session-lifetime",
			Usage:       "Absolute lifetime of a session",
			EnvVars:     []string{"SESSION_LIFETIME"},
			Value:       c.SessionLifetime,
			Destination: &c.SessionLifetime,
		},
		&cli.BoolFlag{
			Name:        "cookie-secure",
			Usage:       "Only send the session cookie over HTTPS",
			EnvVars:     []string{"COOKIE_SECURE"},
			Value:       c.CookieSecure,
			Destination: &c.CookieSecure,
		},
		&cli.StringFlag{
			Name:        "log-level",
			EnvVars:     []string{"LOG_LEVEL"},
			Value:       c.LogLevel,
			Destination: &c.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "console or json",
			EnvVars:     []string{"LOG_FORMAT"},
			Value:       c.LogFormat,
			Destination: &c.LogFormat,
		},
		&cli.StringFlag{
			Name:        "datastore-project",
			EnvVars:     []string{"DATASTORE_PROJECT"},
			Value:       c.DatastoreProject,
			Destination: &c.DatastoreProject,
		},
		&cli.StringFlag{
			Name:        "datastore-namespace",
			EnvVars:     []string{"DATASTORE_NAMESPACE"},
			Value:       c.DatastoreNamespace,
			Destination: &c.DatastoreNamespace,
		},
		&cli.StringFlag{
			Name:        "mongo-database",
			EnvVars:     []string{"MONGO_DATABASE"},
			Value:       c.MongoDatabase,
			Destination: &c.MongoDatabase,
		},
	}
}
