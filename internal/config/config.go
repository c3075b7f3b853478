// Package config holds the runtime settings of the secrets server,
// including defaults, validation and the command-line flags that fill it.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Store kinds
const (
	StoreFS        = "fs"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreMongo     = "mongo"
	StoreDatastore = "datastore"
)

// Session store kinds
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds runtime settings for the secrets server.
//
// Fields:
//   - Bind / Port: listen address, Port defaults to 3000 like the PORT of most hosts.
//   - Secret: key for encrypted credentials and the signed oauth state.
//   - GoogleClientID / GoogleClientSecret / GoogleCallbackURL: Google login, mounted only when set.
//   - CredentialScheme: plaintext, encrypted or bcrypt.
//   - Store / DatabaseURL / DataDir: user store backend and its location.
//   - SessionStore / RedisURL / SessionLifetime / CookieSecure: session settings.
//   - DatastoreProject / DatastoreNamespace / MongoDatabase: backend specific settings.
type Config struct {
	Bind string
	Port int

	Secret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	CredentialScheme string

	Store       string
	DatabaseURL string
	DataDir     string

	SessionStore    string
	RedisURL        string
	SessionLifetime time.Duration
	CookieSecure    bool

	LogLevel  string
	LogFormat string

	DatastoreProject   string
	DatastoreNamespace string
	MongoDatabase      string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the defaults keep everything local and are not meant for production.
func (c *Config) LoadDefaults() {
	c.Bind = ""
	c.Port = 3000
	c.GoogleCallbackURL = "http://localhost:3000/auth/google/callback"
	c.CredentialScheme = "bcrypt"
	c.Store = StoreFS
	c.DataDir = "./data"
	c.SessionStore = SessionMemory
	c.RedisURL = "redis://localhost:6379/0"
	c.SessionLifetime = 24 * time.Hour
	c.LogLevel = "info"
	c.LogFormat = "console"
	c.MongoDatabase = "userDB"
}

// Addr is the address the HTTP server listens on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// GoogleEnabled returns true when Google login should be mounted
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Validate reports every invalid or missing setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	switch c.CredentialScheme {
	case "plaintext":
	case "bcrypt", "hash":
	case "encrypted":
		if c.Secret == "" {
			errs = append(errs, errors.New("SECRET is required for the encrypted credential scheme"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown credential scheme: %q", c.CredentialScheme))
	}
	if c.GoogleEnabled() {
		if c.Secret == "" {
			errs = append(errs, errors.New("SECRET is required for Google login"))
		}
		if c.GoogleCallbackURL == "" {
			errs = append(errs, errors.New("GOOGLE_CALLBACK_URL is required for Google login"))
		}
	} else if c.GoogleClientID != "" || c.GoogleClientSecret != "" {
		errs = append(errs, errors.New("CLIENT_ID and CLIENT_SECRET must be set together"))
	}

	switch c.Store {
	case StoreFS:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the fs store"))
		}
	case StoreSQLite, StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for the %s store", c.Store))
		}
	case StoreMongo:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the mongo store"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required for the mongo store"))
		}
	case StoreDatastore:
		if c.DatastoreProject == "" {
			errs = append(errs, errors.New("DATASTORE_PROJECT is required for the datastore store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store: %q", c.Store))
	}

	switch c.SessionStore {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store: %q", c.SessionStore))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, fmt.Errorf("invalid session lifetime: %s", c.SessionLifetime))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format: %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
