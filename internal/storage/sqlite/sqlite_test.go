package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bikesim/drivetrain/internal/database"
	"github.com/bikesim/drivetrain/internal/model"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countRows(t *testing.T, path string) int64 {
	t.Helper()
	db, err := database.OpenSqlite(path)
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&model.Rebuild{}).Count(&n).Error)
	return n
}

func TestCloseWritesFinalDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(Config{DumpPath: path}, "drivetrain", nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordRebuild(context.Background(), &core.RebuildRecord{Tick: uint64(i), Outcome: core.OutcomeBuilt}))
	}
	require.NoError(t, b.Close())
	// second close is a no-op
	require.NoError(t, b.Close())

	assert.Equal(t, int64(3), countRows(t, path))
}

func TestPeriodicDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 20 * time.Millisecond}, "drivetrain", nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.RecordRebuild(context.Background(), &core.RebuildRecord{Tick: 1, Outcome: core.OutcomeBuilt}))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{DumpInterval: time.Millisecond}, "drivetrain", nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordRebuild(context.Background(), &core.RebuildRecord{Tick: 1}))
	recent, err := b.RecentRebuilds(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
	assert.NoError(t, b.Close())
}
