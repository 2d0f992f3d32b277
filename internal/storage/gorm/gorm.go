// Package gormstorage implements the storage.Backend interface with synchronous
// GORM writes. The sqlite backend embeds it.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bikesim/drivetrain/internal/database"
	"github.com/bikesim/drivetrain/internal/model"
	"github.com/bikesim/drivetrain/internal/model/convert"
	"github.com/bikesim/drivetrain/pkg/core"

	"gorm.io/gorm"
)

// ErrNoDB is returned when the backend is used without a database.
var ErrNoDB = errors.New("gorm backend has no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB          *gorm.DB
	Logger      *slog.Logger
	ServiceName string
}

// Backend writes each rebuild record in its own insert.
type Backend struct {
	deps   Dependencies
	logger *slog.Logger
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		deps:   deps,
		logger: logger.With("component", "storage.gorm"),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if err := database.Migrate(b.deps.DB, b.deps.ServiceName); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.logger.Info("Journal schema ready", "dialect", b.deps.DB.Name())
	return nil
}

// Close is a no-op; the connection belongs to whoever opened it.
func (b *Backend) Close() error {
	return nil
}

// RecordRebuild inserts rec and copies the generated ID back.
func (b *Backend) RecordRebuild(ctx context.Context, rec *core.RebuildRecord) error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	row, err := convert.CoreToRebuild(*rec)
	if err != nil {
		return err
	}
	row.ID = 0
	if err := b.deps.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert rebuild: %w", err)
	}
	rec.ID = row.ID
	return nil
}

// RecentRebuilds returns up to limit records, newest first.
func (b *Backend) RecentRebuilds(ctx context.Context, limit int) ([]core.RebuildRecord, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDB
	}
	var rows []model.Rebuild
	q := b.deps.DB.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query rebuilds: %w", err)
	}

	out := make([]core.RebuildRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := convert.RebuildToCore(row)
		if err != nil {
			return nil, fmt.Errorf("rebuild %d: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
