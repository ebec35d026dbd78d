package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adeilh/rakh-todos/auth"
	"github.com/adeilh/rakh-todos/cache/redis"
	"github.com/adeilh/rakh-todos/db/sql/postgres"
	"github.com/adeilh/rakh-todos/internal/api"
	"github.com/adeilh/rakh-todos/internal/config"
	"github.com/adeilh/rakh-todos/internal/logging"
	"github.com/adeilh/rakh-todos/todo"
)

// service holds the wired dependencies and the resources to release.
type service struct {
	api     *api.Handler
	closers []func() error
}

func (s *service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *service, err error) {
	svc := &service{}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()
	health := map[string]api.HealthCheck{}

	var (
		db        *sql.DB
		users     auth.UserRepository
		todoStore todo.Repository
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = postgres.OpenWithRetry(ctx, logging.Component(logger, "postgres"),
			postgres.WithDSN(cfg.Database.DSN),
			postgres.WithMaxOpenConns(cfg.Database.MaxOpenConns),
			postgres.WithMaxIdleConns(cfg.Database.MaxIdleConns),
			postgres.WithConnMaxLifetime(cfg.Database.ConnMaxLifetime),
			postgres.WithRetryInterval(cfg.Database.RetryInterval),
			postgres.WithRetryTimeout(cfg.Database.RetryTimeout),
		)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, db.Close)
		if cfg.Database.Migrate {
			if err = postgres.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		users = postgres.NewUserRepository(db)
		todoStore = postgres.NewTodoRepository(db)
		health["database"] = db.PingContext
	case config.DriverMemory:
		users = auth.NewMemoryUserRepository()
		todoStore = todo.NewMemoryRepository()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	var registry auth.SessionRegistry
	switch cfg.Registry.Backend {
	case config.DriverPostgres:
		registry = postgres.NewSessionRepository(db)
	case config.BackendRedis:
		store := redis.NewStore(redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, store.Close)
		sessions := auth.NewCacheSessionRegistry(store, auth.SessionStoreOptions{Prefix: cfg.Redis.Prefix})
		health["redis"] = sessions.Ping
		registry = sessions
	case config.DriverMemory:
		registry = auth.NewMemoryRegistry()
	default:
		return nil, fmt.Errorf("unsupported registry backend %q", cfg.Registry.Backend)
	}

	hasher, err := auth.NewMultiHasher(cfg.Auth.PasswordAlgorithm, map[string]auth.PasswordHasher{
		auth.AlgorithmHMACSHA256: auth.NewHMACHasher(),
		auth.AlgorithmArgon2id:   auth.NewArgon2idHasher(),
	})
	if err != nil {
		return nil, err
	}

	manager, err := auth.NewManager(auth.ManagerConfig{
		Secret:         []byte(cfg.Auth.Secret),
		Registry:       registry,
		UserRepository: users,
		PasswordHasher: hasher,
		Logger:         &logger,
	})
	if err != nil {
		return nil, err
	}

	todos, err := todo.NewService(todoStore)
	if err != nil {
		return nil, err
	}

	svc.api, err = api.New(api.Config{
		Auth:   manager,
		Todos:  todos,
		Health: health,
		Logger: &logger,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
