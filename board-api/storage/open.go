package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Options selects and configures a gateway backend.
type Options struct {
	Driver           string
	DatabaseURL      string
	ConnectionString string
	BoardsTable      string
	TasksTable       string
	MigrateOnStart   bool

	RedisURL string
	CacheTTL time.Duration
}

// Open builds the configured gateway, wrapped in a Redis cache when a Redis
// URL is set. The returned close function releases every opened connection.
func Open(ctx context.Context, opts Options, logger *log.Logger) (Gateway, func() error, error) {
	var (
		gw      Gateway
		closers []func() error
	)
	switch opts.Driver {
	case DriverPostgres, "":
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("missing DATABASE_URL for %s driver", DriverPostgres)
		}
		db, err := sqlx.ConnectContext(ctx, "postgres", opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		closers = append(closers, db.Close)
		if opts.MigrateOnStart {
			if err := Migrate(db.DB); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}
		gw = NewPostgres(db)
	case DriverTables:
		if opts.ConnectionString == "" || opts.BoardsTable == "" || opts.TasksTable == "" {
			return nil, nil, fmt.Errorf("missing table storage config")
		}
		t, err := NewTables(opts.ConnectionString, opts.BoardsTable, opts.TasksTable)
		if err != nil {
			return nil, nil, err
		}
		gw = t
	case DriverMemory:
		gw = NewMemory()
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	logger.WithField("driver", opts.Driver).Info("store ready")

	if opts.RedisURL != "" {
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rc := redis.NewClient(redisOpts)
		closers = append(closers, rc.Close)
		gw = NewCache(gw, rc, opts.CacheTTL)
		logger.WithField("ttl", opts.CacheTTL).Info("redis cache enabled")
	}

	return gw, func() error { return closeAll(closers) }, nil
}

func closeAll(closers []func() error) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
