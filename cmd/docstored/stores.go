package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/mmynk/notekeeper/internal/auth"
	"github.com/mmynk/notekeeper/internal/config"
	"github.com/mmynk/notekeeper/internal/docstore/memory"
	"github.com/mmynk/notekeeper/internal/docstore/mongostore"
	"github.com/mmynk/notekeeper/internal/docstore/sqlite"
	"github.com/mmynk/notekeeper/internal/service"
)

// backend bundles the document and account storage of one driver.
type backend struct {
	documents service.DocumentStore
	users     auth.UserStorage
	close     func() error
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (*backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.Driver, "database", cfg.SQLitePath)
		return &backend{documents: store, users: store, close: store.Close}, nil

	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, mongostore.Options{
			URI:           cfg.MongoURI,
			Timeout:       cfg.MongoTimeout,
			UsersDatabase: cfg.UsersDatabase,
		})
		if err != nil {
			return nil, err
		}
		return &backend{documents: store, users: store, close: store.Close}, nil

	case config.DriverMemory:
		slog.Warn("Using in-memory storage; documents are lost on restart")
		return &backend{documents: memory.New(), users: memory.NewUsers(), close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openRevocations connects to Redis when configured and keeps revocations
// in memory otherwise.
func openRevocations(ctx context.Context, cfg config.RedisConfig) (auth.RevocationList, func() error, error) {
	if cfg.Addr == "" {
		return auth.NewMemoryRevocationList(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return auth.NewRedisRevocationList(client), client.Close, nil
}
