package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/knwn/storefront/internal/infrastructure/config"
	"github.com/knwn/storefront/internal/infrastructure/logger"
	"github.com/knwn/storefront/internal/infrastructure/persistence/models"
	"github.com/knwn/storefront/internal/infrastructure/telemetry"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	driver string
}

// Options selects and tunes the snapshot database
type Options struct {
	Driver     string // config.StorageSQLite or config.StoragePostgres
	SQLitePath string
	Postgres   config.DatabaseConfig
	LogLevel   string
	Tracing    bool
}

// NewDatabase opens the database named by opts. SQLite schemas are
// auto-migrated; postgres schemas are owned by cmd/migrate.
func NewDatabase(opts Options, zl *zap.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case config.StorageSQLite:
		dialector = sqlite.Open(opts.SQLitePath)
	case config.StoragePostgres:
		dialector = postgres.Open(opts.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(zl, opts.LogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &Database{DB: db, driver: opts.Driver}
	if err := d.configurePool(opts); err != nil {
		return nil, err
	}
	if err := d.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Tracing {
		system := "postgresql"
		if opts.Driver == config.StorageSQLite {
			system = "sqlite"
		}
		if err := telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{DBSystem: system}); err != nil {
			return nil, err
		}
	}

	if opts.Driver == config.StorageSQLite {
		if err := db.AutoMigrate(&models.SessionSnapshot{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}
	return d, nil
}

func (d *Database) configurePool(opts Options) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.Driver == config.StorageSQLite {
		// SQLite serializes writers; ":memory:" is also per-connection.
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	cfg := opts.Postgres
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	return nil
}

// Driver returns the configured driver name
func (d *Database) Driver() string {
	return d.driver
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
