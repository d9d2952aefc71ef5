package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-discount/internal/obs"
)

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// OpenOptions selects and configures a backend.
type OpenOptions struct {
	Driver      string
	RedisURL    string
	DatabaseURL string
	// CacheTTL enables the Redis read-through cache in front of Postgres when a Redis URL
	// is also configured.
	CacheTTL        time.Duration
	Migrate         bool
	InstrumentRedis bool
	ApplicationName string
	// BreakerOpenFor wraps the store in a BreakerStore when positive.
	BreakerOpenFor time.Duration
	Logger         zerolog.Logger
}

// Backend is an opened store plus the resources that must be released with it.
type Backend struct {
	Store Store
	Redis *redis.Client
	Pool  *pgxpool.Pool
}

// Close releases every connection held by the backend.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
	return errors.Join(errs...)
}

// Open builds the store named by opts.Driver. DriverNone yields a Backend with a nil Store.
func Open(ctx context.Context, opts OpenOptions) (*Backend, error) {
	backend := &Backend{}
	if opts.RedisURL != "" {
		client, err := openRedis(ctx, opts)
		if err != nil {
			return nil, err
		}
		backend.Redis = client
	}

	switch opts.Driver {
	case DriverNone, "":
		return backend, nil
	case DriverRedis:
		if backend.Redis == nil {
			return nil, errors.New("redis store requires a redis url")
		}
		backend.Store = withBreaker(NewRedisStore(backend.Redis), opts)
		return backend, nil
	case DriverPostgres:
		pool, err := openPostgres(ctx, opts)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		backend.Pool = pool
		var st Store = NewPostgresStore(pool)
		if backend.Redis != nil && opts.CacheTTL > 0 {
			st = NewCachedStore(st, backend.Redis, opts.CacheTTL)
		}
		backend.Store = withBreaker(st, opts)
		return backend, nil
	default:
		_ = backend.Close()
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
}

func withBreaker(st Store, opts OpenOptions) Store {
	if opts.BreakerOpenFor <= 0 {
		return st
	}
	b := NewBreakerStore(st, 10, 0.5, opts.BreakerOpenFor)
	b.Logger = opts.Logger.With().Str("component", "store_breaker").Logger()
	return b
}

func openRedis(ctx context.Context, opts OpenOptions) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if opts.InstrumentRedis {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("instrument redis tracing: %w", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("instrument redis metrics: %w", err)
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func openPostgres(ctx context.Context, opts OpenOptions) (*pgxpool.Pool, error) {
	if opts.Migrate {
		if err := Migrate(opts.DatabaseURL); err != nil {
			return nil, err
		}
	}
	poolConfig, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	if opts.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
