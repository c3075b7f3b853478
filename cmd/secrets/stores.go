package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/panyam/secrets"
	"github.com/panyam/secrets/internal/config"
	"github.com/panyam/secrets/internal/logutil"
	"github.com/panyam/secrets/stores/fs"
	"github.com/panyam/secrets/stores/gae"
	gormstore "github.com/panyam/secrets/stores/gorm"
	"github.com/panyam/secrets/stores/mongo"
	"github.com/panyam/secrets/stores/redis"
)

type closeFunc func()

// openUserStore connects the configured backend and prepares its schema
func openUserStore(ctx context.Context, cfg *config.Config) (secrets.UserStore, closeFunc, error) {
	log := logutil.GetOrDefault(ctx)
	logClose := func(name string, err error) {
		if err != nil {
			log.Warn().Err(err).Str("store", name).Msg("failed to close store")
		}
	}

	switch cfg.Store {
	case config.StoreFS:
		return fs.NewUserStore(cfg.DataDir), func() {}, nil

	case config.StoreSQLite, config.StorePostgres:
		db, err := gormstore.Open(cfg.Store, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		store := gormstore.NewUserStore(db)
		return store, func() { logClose(cfg.Store, store.Close()) }, nil

	case config.StoreMongo:
		store, err := mongo.Connect(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { logClose(cfg.Store, store.Close()) }, nil

	case config.StoreDatastore:
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("datastore connection failed: %w", err)
		}
		store := gae.NewUserStore(client, cfg.DatastoreNamespace)
		return store, func() { logClose(cfg.Store, store.Close()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store: %q", cfg.Store)
}

// openSessionStore returns the scs store for sessions
func openSessionStore(ctx context.Context, cfg *config.Config) (scs.Store, closeFunc, error) {
	switch cfg.SessionStore {
	case config.SessionMemory:
		store := memstore.New()
		return store, store.StopCleanup, nil
	case config.SessionRedis:
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log := logutil.GetOrDefault(ctx)
		store := redis.NewSessionStore(client, "")
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close redis")
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown session store: %q", cfg.SessionStore)
}
