// Package memory keeps the rebuild journal in memory and exports it as JSON on close.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/pkg/core"
)

// Backend stores rebuild records in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	service string
	logger  *slog.Logger
	now     func() time.Time

	startTime      time.Time
	rebuilds       []core.RebuildRecord
	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, service string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:     cfg,
		service: service,
		logger:  logger.With("component", "storage.memory"),
		now:     time.Now,
	}
}

// Init starts a new session
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.startTime = b.now()
	b.rebuilds = nil
	b.idCounter = 0
	return nil
}

// Close exports the session if an output directory is configured
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// RecordRebuild stores a copy of rec and assigns its ID
func (b *Backend) RecordRebuild(_ context.Context, rec *core.RebuildRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	rec.ID = b.idCounter

	stored := *rec
	stored.Cogs = append([]core.CogProfile(nil), rec.Cogs...)
	stored.Path = append([]core.Point(nil), rec.Path...)
	b.rebuilds = append(b.rebuilds, stored)
	return nil
}

// Rebuilds returns the recorded rebuilds in arrival order
func (b *Backend) Rebuilds() []core.RebuildRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.RebuildRecord, len(b.rebuilds))
	copy(out, b.rebuilds)
	return out
}

// GetExportedFilePath returns the path of the last export, if any
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
