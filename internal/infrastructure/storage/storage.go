// Package storage opens the configured session snapshot backend and the
// matching checkout claim store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/infrastructure/cache"
	"github.com/knwn/storefront/internal/infrastructure/config"
	"github.com/knwn/storefront/internal/infrastructure/persistence"
)

// DefaultJanitorInterval is how often expired snapshots are purged
const DefaultJanitorInterval = time.Hour

// purger is implemented by stores that can drop old snapshots
type purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stores bundles the backends the application needs from storage
type Stores struct {
	Snapshots shared.KeyValueStore
	Claims    shared.IdempotencyStore
	Database  *persistence.Database

	driver    string
	retention time.Duration
	purger    purger
	closers   []func() error
	logger    *zap.Logger
}

// Open connects the backend selected by cfg.Storage.Driver. Redis holds
// both snapshots and claims; the other drivers keep claims in memory.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stores{
		driver:    cfg.Storage.Driver,
		retention: cfg.Storage.Retention,
		logger:    logger.Named("storage"),
	}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		s.Snapshots = cache.NewMemoryStore()

	case config.StorageSQLite, config.StoragePostgres:
		db, err := persistence.NewDatabase(persistence.Options{
			Driver:     cfg.Storage.Driver,
			SQLitePath: cfg.Storage.SQLitePath,
			Postgres:   cfg.Database,
			LogLevel:   cfg.Log.Level,
			Tracing:    cfg.Telemetry.Enabled,
		}, logger)
		if err != nil {
			return nil, err
		}
		store := persistence.NewSnapshotStore(db.DB)
		s.Database = db
		s.Snapshots = store
		s.purger = store
		s.closers = append(s.closers, db.Close)

	case config.StorageRedis:
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		s.Snapshots = cache.NewRedisStore(client, cfg.Storage.KeyPrefix, cfg.Storage.Retention)
		s.Claims = cache.NewRedisIdempotencyStore(client, cfg.Storage.KeyPrefix)
		s.closers = append(s.closers, client.Close)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if s.Claims == nil {
		claims := cache.NewMemoryIdempotencyStore(10 * time.Minute)
		s.Claims = claims
		s.closers = append(s.closers, claims.Close)
	}

	s.logger.Info("storage opened",
		zap.String("driver", s.driver),
		zap.Duration("retention", s.retention),
	)
	return s, nil
}

// Driver returns the configured driver name
func (s *Stores) Driver() string {
	return s.driver
}

// Ping checks the backing database, if any
func (s *Stores) Ping(ctx context.Context) error {
	if s.Database == nil {
		return nil
	}
	return s.Database.Ping(ctx)
}

// Purge drops snapshots untouched for longer than the retention period.
// Redis expires keys by itself, so only SQL stores purge.
func (s *Stores) Purge(ctx context.Context, now time.Time) (int64, error) {
	if s.purger == nil || s.retention <= 0 {
		return 0, nil
	}
	return s.purger.PurgeBefore(ctx, now.Add(-s.retention))
}

// RunJanitor purges expired snapshots every interval until ctx is done
func (s *Stores) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.purger == nil || s.retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Purge(ctx, now)
			if err != nil {
				s.logger.Warn("snapshot purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("purged expired snapshots", zap.Int64("count", n))
			}
		}
	}
}

// Close releases every backend, in reverse order of opening
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
