package main

import (
	"context"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/httpapi"
	"github.com/goliatone/go-accounts/memstore"
	"github.com/goliatone/go-accounts/mongostore"
	"github.com/goliatone/go-accounts/redisstore"
	"github.com/goliatone/go-accounts/repository"
)

// backend is the selected set of stores and what it takes to close them
type backend struct {
	users   accounts.Users
	tokens  accounts.RefreshTokens
	sweeper *repository.Sweeper
	checks  map[string]httpapi.HealthCheck
	closers []func() error
	logger  accounts.Logger
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Error("close backend", "error", err)
		}
	}
}

func openBackend(ctx context.Context, cfg *config.Config, base *glog.BaseLogger) (*backend, error) {
	logger := base.GetLogger("backend")
	b := &backend{
		checks: map[string]httpapi.HealthCheck{},
		logger: logger,
	}

	var expirer repository.Expirer

	switch cfg.Persistence.Driver {
	case config.PersistenceSQLite, config.PersistencePostgres:
		db, err := repository.Open(ctx, repository.Config{
			Driver: cfg.Persistence.Driver,
			DSN:    cfg.Persistence.DSN,
			Debug:  cfg.Persistence.Debug,
		}, base.GetLogger("persistence"))
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)

		manager := repository.NewManager(db, repository.WithTokenTTL(cfg.Tokens.RefreshTTL))
		manager.MustValidate()

		b.users = manager.Users()
		b.tokens = manager.RefreshTokens()
		b.checks["db"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		expirer = manager.RefreshTokens()

	case config.PersistenceMongo:
		client, err := mongostore.Connect(ctx, cfg.Persistence.MongoURI, 10*time.Second)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error {
			return client.Disconnect(context.Background())
		})

		db := client.Database(cfg.Persistence.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, db, cfg.Tokens.RefreshTTL); err != nil {
			b.Close()
			return nil, err
		}

		b.users = mongostore.NewUsers(db)
		b.tokens = mongostore.NewRefreshTokens(db, cfg.Tokens.RefreshTTL)
		b.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

	case config.PersistenceMemory:
		tokens := memstore.NewRefreshTokens(memstore.WithTTL(cfg.Tokens.RefreshTTL))
		b.users = memstore.NewUsers()
		b.tokens = tokens
		expirer = tokens
	}

	if cfg.RefreshStore.Driver == config.RefreshStoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RefreshStore.RedisAddr,
			Password: cfg.RefreshStore.RedisPassword,
			DB:       cfg.RefreshStore.RedisDB,
		})
		b.closers = append(b.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			b.Close()
			return nil, err
		}

		b.tokens = redisstore.NewRefreshTokens(client,
			redisstore.WithTTL(cfg.Tokens.RefreshTTL),
			redisstore.WithPrefix(cfg.RefreshStore.RedisPrefix),
		)
		b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		expirer = nil
	}

	if expirer != nil {
		b.sweeper = repository.NewSweeper(expirer, cfg.RefreshStore.SweepInterval, base.GetLogger("sweeper"))
	}

	return b, nil
}
