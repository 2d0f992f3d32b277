package gormstorage

import (
	"context"
	"testing"
	"time"

	"github.com/bikesim/drivetrain/internal/database"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, ServiceName: "drivetrain"})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func record(tick uint64, outcome core.RebuildOutcome) *core.RebuildRecord {
	return &core.RebuildRecord{
		Time:      time.Date(2026, 3, 1, 9, 0, 0, int(tick), time.UTC),
		Tick:      tick,
		Trigger:   core.TriggerManualReset,
		Outcome:   outcome,
		LinkCount: 4,
		Cogs:      []core.CogProfile{{Role: core.FrontChainring, Radius: 5}},
		Path:      []core.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
	}
}

func TestNoDB(t *testing.T) {
	b := New(Dependencies{})

	assert.ErrorIs(t, b.Init(), ErrNoDB)
	assert.ErrorIs(t, b.RecordRebuild(context.Background(), record(1, core.OutcomeBuilt)), ErrNoDB)
	_, err := b.RecentRebuilds(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoDB)
	assert.NoError(t, b.Close())
}

func TestRecordRebuildAssignsID(t *testing.T) {
	b := newTestBackend(t)

	first := record(1, core.OutcomeBuilt)
	second := record(2, core.OutcomeGeometry)
	require.NoError(t, b.RecordRebuild(context.Background(), first))
	require.NoError(t, b.RecordRebuild(context.Background(), second))

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
}

func TestRecentRebuilds(t *testing.T) {
	b := newTestBackend(t)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, b.RecordRebuild(context.Background(), record(i, core.OutcomeBuilt)))
	}

	recent, err := b.RecentRebuilds(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(5), recent[0].Tick)
	assert.Equal(t, uint64(4), recent[1].Tick)
	assert.Equal(t, []core.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, recent[0].Path)
	assert.Equal(t, 5.0, recent[0].Cogs[0].Radius)

	all, err := b.RecentRebuilds(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRecordRebuildIgnoresCallerID(t *testing.T) {
	b := newTestBackend(t)

	rec := record(1, core.OutcomeBuilt)
	rec.ID = 999
	require.NoError(t, b.RecordRebuild(context.Background(), rec))
	assert.NotEqual(t, uint(999), rec.ID)
}
