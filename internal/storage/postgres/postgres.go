// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with an internal queue and a background DB writer goroutine.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/internal/database"
	"github.com/bikesim/drivetrain/internal/model"
	"github.com/bikesim/drivetrain/internal/model/convert"
	"github.com/bikesim/drivetrain/internal/queue"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the postgres storage backend.
// If DB is nil, Init connects with DBConfig through a database.Manager.
type Dependencies struct {
	DB          *gorm.DB
	DBConfig    config.DBConfig
	DBLogger    zerolog.Logger
	Logger      *slog.Logger
	ServiceName string
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	cfg     config.PostgresConfig
	logger  *slog.Logger
	manager *database.Manager
	pending *queue.Queue[model.Rebuild]

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a new postgres storage backend.
func New(cfg config.PostgresConfig, deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		cfg:     cfg,
		logger:  logger.With("component", "storage.postgres"),
		pending: queue.NewBounded[model.Rebuild](cfg.BufferSize),
	}
}

// Init connects if needed, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		b.manager = database.NewManager(b.deps.DBConfig, b.deps.DBLogger)
		if err := b.manager.Connect(); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if b.manager.ShouldSaveLocal {
			b.logger.Warn("Postgres unavailable, journalling to in-memory SQLite")
		}
		b.deps.DB = b.manager.DB
	}

	if err := database.Migrate(b.deps.DB, b.deps.ServiceName); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.wg.Add(1)
	go b.writerLoop()
	return nil
}

// Close stops the writer, flushes what is left and closes an owned connection.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.wg.Wait()
		}
		if b.deps.DB != nil {
			err = b.Flush(context.Background())
		}
		if b.manager != nil {
			if cerr := b.manager.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

// RecordRebuild queues rec for the next batch. IDs are assigned by the database
// on write, so rec.ID stays zero.
func (b *Backend) RecordRebuild(_ context.Context, rec *core.RebuildRecord) error {
	row, err := convert.CoreToRebuild(*rec)
	if err != nil {
		return err
	}
	row.ID = 0
	if dropped := b.pending.Push(row); dropped > 0 {
		b.logger.Warn("Journal buffer full, dropped oldest rebuilds", "dropped", dropped)
	}
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// Flush writes all queued rows in one transaction. On failure the rows go
// back to the head of the queue.
func (b *Backend) Flush(ctx context.Context) error {
	if b.pending.Empty() {
		return nil
	}

	items := b.pending.Drain()
	err := b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		for i := range items {
			items[i].ID = 0
		}
		b.pending.PushFront(items...)
		return fmt.Errorf("error creating %d rebuilds: %w", len(items), err)
	}
	b.logger.Debug("Wrote rebuilds", "count", len(items))
	return nil
}

// writerLoop periodically drains the queue into the DB.
func (b *Backend) writerLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(context.Background()); err != nil {
				b.logger.Error("DB writer failed", "error", err)
			}
		}
	}
}
