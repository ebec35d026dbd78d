package postgres

import "time"

// Options configures PostgreSQL connections and pool behavior.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RetryInterval   time.Duration
	RetryTimeout    time.Duration
}

type Option func(*Options)

// WithDSN sets the lib/pq connection string.
func WithDSN(dsn string) Option {
	return func(o *Options) {
		if dsn != "" {
			o.DSN = dsn
		}
	}
}

// WithDriver overrides the database/sql driver name.
func WithDriver(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.Driver = name
		}
	}
}

// WithMaxOpenConns controls the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxOpenConns = n
		}
	}
}

// WithMaxIdleConns controls the idle connection pool size.
func WithMaxIdleConns(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxIdleConns = n
		}
	}
}

// WithConnMaxLifetime controls how long a connection can be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ConnMaxLifetime = d
		}
	}
}

// WithRetryInterval sets the first delay between connection attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RetryInterval = d
		}
	}
}

// WithRetryTimeout bounds the total time OpenWithRetry keeps trying.
func WithRetryTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RetryTimeout = d
		}
	}
}

func defaultOptions() Options {
	return Options{
		Driver:          "postgres",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		RetryInterval:   5 * time.Second,
		RetryTimeout:    time.Minute,
	}
}

func buildOptions(opts ...Option) Options {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
