package storage

import (
	"context"

	"github.com/bikesim/drivetrain/pkg/core"
)

// Backend is the interface all rebuild journal implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordRebuild stores one rebuild attempt and assigns rec.ID where the
	// backend knows it synchronously.
	RecordRebuild(ctx context.Context, rec *core.RebuildRecord) error
}

// Exportable is an optional interface for backends that produce a file on close.
type Exportable interface {
	GetExportedFilePath() string
}

// Queryable is an optional interface for backends that can read the journal back.
type Queryable interface {
	RecentRebuilds(ctx context.Context, limit int) ([]core.RebuildRecord, error)
}
