package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/panyam/secrets"
	"github.com/panyam/secrets/internal/config"
	"github.com/panyam/secrets/internal/httpserver"
	"github.com/panyam/secrets/internal/logutil"
	"github.com/panyam/secrets/views"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	// a missing .env is fine, values then come from the real env and flags
	_ = godotenv.Load()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the secrets web server",
		Flags: config.Flags(cfg),
		Action: func(ctx *cli.Context) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logutil.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			runCtx := logutil.WithLogger(ctx.Context, logger)
			return serve(runCtx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logutil.GetOrDefault(ctx)

	users, closeUsers, err := openUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeUsers()

	sessionStore, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	scheme, err := secrets.NewCredentialScheme(cfg.CredentialScheme, cfg.Secret)
	if err != nil {
		return err
	}
	renderer, err := views.New()
	if err != nil {
		return err
	}

	manager := secrets.NewSessionManager(sessionStore, cfg.SessionLifetime, cfg.CookieSecure)
	app := secrets.NewApp(users, scheme, secrets.NewSessions(manager, users), renderer)
	app.Logger = log
	if cfg.GoogleEnabled() {
		app.EnableGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, cfg.Secret)
	}

	log.Info().
		Str("store", cfg.Store).
		Str("session_store", cfg.SessionStore).
		Str("scheme", scheme.Name()).
		Bool("google", cfg.GoogleEnabled()).
		Msg("Starting secrets")
	return httpserver.Serve(ctx, cfg.Addr(), app.Handler())
}
