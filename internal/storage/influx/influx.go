// Package influxstorage journals rebuilds as InfluxDB points.
package influxstorage

import (
	"context"
	"sync/atomic"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/internal/influx"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/rs/zerolog"
)

// Backend writes one point per rebuild to the configured bucket.
type Backend struct {
	manager *influx.Manager
	lastID  atomic.Uint64
}

// New creates a backend. backupPath receives line protocol while the server
// is unreachable; empty makes an unreachable server an Init error.
func New(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Backend {
	return &Backend{manager: influx.NewManager(cfg, log, backupPath)}
}

// Init connects to the server or opens the backup file.
func (b *Backend) Init() error {
	return b.manager.Connect(context.Background())
}

// Close flushes pending points.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// RecordRebuild writes rec as a chain_rebuild point. IDs are local sequence numbers.
func (b *Backend) RecordRebuild(_ context.Context, rec *core.RebuildRecord) error {
	rec.ID = uint(b.lastID.Add(1))
	return b.manager.WritePoint(b.manager.Config.Bucket, influx.RebuildPoint(rec))
}

// Online reports whether points go to the server rather than the backup file.
func (b *Backend) Online() bool {
	return b.manager.IsValid
}
