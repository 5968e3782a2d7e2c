package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	DBSystem   string // "sqlite" or "postgresql"
	LogFullSQL bool   // include query variables in spans (development only)
}

// RegisterDBTracing installs the otelgorm plugin on db. Snapshot payloads
// carry customer data, so query variables are omitted unless LogFullSQL.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	return nil
}
