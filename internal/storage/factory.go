package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bikesim/drivetrain/internal/config"
	gormstorage "github.com/bikesim/drivetrain/internal/storage/gorm"
	influxstorage "github.com/bikesim/drivetrain/internal/storage/influx"
	"github.com/bikesim/drivetrain/internal/storage/memory"
	"github.com/bikesim/drivetrain/internal/storage/postgres"
	sqlitestorage "github.com/bikesim/drivetrain/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Storage type names accepted by NewBackend
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeInflux   = "influx"
)

// Dependencies are shared by all backends.
type Dependencies struct {
	Logger      *slog.Logger
	DBLogger    zerolog.Logger
	ServiceName string
	DBConfig    config.DBConfig
	Influx      config.InfluxConfig
}

// NewBackend creates a storage backend based on configuration. The backend is not initialized.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return memory.New(cfg.Memory, deps.ServiceName, deps.Logger), nil
	case TypeSQLite:
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, deps.ServiceName, deps.Logger)
	case TypePostgres:
		return postgres.New(cfg.Postgres, postgres.Dependencies{
			DBConfig:    deps.DBConfig,
			DBLogger:    deps.DBLogger,
			Logger:      deps.Logger,
			ServiceName: deps.ServiceName,
		}), nil
	case TypeInflux:
		backup := ""
		if cfg.Memory.OutputDir != "" {
			backup = filepath.Join(cfg.Memory.OutputDir, "rebuilds_influx_backup.lp.gz")
		}
		return influxstorage.New(deps.Influx, deps.DBLogger, backup), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// compile-time interface checks
var (
	_ Backend    = (*memory.Backend)(nil)
	_ Exportable = (*memory.Backend)(nil)
	_ Backend    = (*gormstorage.Backend)(nil)
	_ Queryable  = (*gormstorage.Backend)(nil)
	_ Backend    = (*sqlitestorage.Backend)(nil)
	_ Queryable  = (*sqlitestorage.Backend)(nil)
	_ Backend    = (*postgres.Backend)(nil)
	_ Backend    = (*influxstorage.Backend)(nil)
)
