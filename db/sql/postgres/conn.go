package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

var ErrMissingDSN = errors.New("postgres: DSN is required")

// Open connects to PostgreSQL using the provided options and applies pool settings.
func Open(ctx context.Context, opts ...Option) (*sql.DB, error) {
	return open(ctx, buildOptions(opts...))
}

func open(ctx context.Context, cfg Options) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return db, nil
}

// openFunc is a seam for testing the retry loop.
var openFunc = open

// OpenWithRetry keeps calling Open until the database answers, the retry
// timeout elapses or ctx is done. A missing DSN fails immediately.
func OpenWithRetry(ctx context.Context, logger zerolog.Logger, opts ...Option) (*sql.DB, error) {
	cfg := buildOptions(opts...)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.RetryInterval
	policy.MaxInterval = 4 * cfg.RetryInterval
	policy.MaxElapsedTime = cfg.RetryTimeout

	var db *sql.DB
	err := backoff.RetryNotify(
		func() error {
			conn, err := openFunc(ctx, cfg)
			if err != nil {
				if errors.Is(err, ErrMissingDSN) {
					return backoff.Permanent(err)
				}
				return err
			}
			db = conn
			return nil
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", next).Msg("database unavailable")
		},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
