package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/x", CompressOutput: true}, "drivetrain", nil)

	require.NotNil(t, b)
	assert.Equal(t, "/tmp/x", b.cfg.OutputDir)
	assert.True(t, b.cfg.CompressOutput)
	assert.Empty(t, b.Rebuilds())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestInitAndCloseWithoutOutput(t *testing.T) {
	b := New(config.MemoryConfig{}, "drivetrain", nil)

	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestRecordRebuildAssignsIDs(t *testing.T) {
	b := New(config.MemoryConfig{}, "drivetrain", nil)
	require.NoError(t, b.Init())

	first := &core.RebuildRecord{Tick: 1, Outcome: core.OutcomeBuilt}
	second := &core.RebuildRecord{Tick: 2, Outcome: core.OutcomeTornDown}
	require.NoError(t, b.RecordRebuild(context.Background(), first))
	require.NoError(t, b.RecordRebuild(context.Background(), second))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)

	got := b.Rebuilds()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Tick)
	assert.Equal(t, core.OutcomeTornDown, got[1].Outcome)
}

func TestRecordRebuildCopiesSlices(t *testing.T) {
	b := New(config.MemoryConfig{}, "drivetrain", nil)
	require.NoError(t, b.Init())

	rec := &core.RebuildRecord{
		Cogs: []core.CogProfile{{Role: core.FrontChainring, Radius: 5}},
		Path: []core.Point{{X: 1, Y: 2}},
	}
	require.NoError(t, b.RecordRebuild(context.Background(), rec))

	rec.Cogs[0].Radius = 99
	rec.Path[0].X = 99

	got := b.Rebuilds()[0]
	assert.Equal(t, 5.0, got.Cogs[0].Radius)
	assert.Equal(t, 1.0, got.Path[0].X)
}

func TestInitResetsSession(t *testing.T) {
	b := New(config.MemoryConfig{}, "drivetrain", nil)
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordRebuild(context.Background(), &core.RebuildRecord{}))

	require.NoError(t, b.Init())
	assert.Empty(t, b.Rebuilds())

	rec := &core.RebuildRecord{}
	require.NoError(t, b.RecordRebuild(context.Background(), rec))
	assert.Equal(t, uint(1), rec.ID)
}

func TestConcurrentRecords(t *testing.T) {
	b := New(config.MemoryConfig{}, "drivetrain", nil)
	require.NoError(t, b.Init())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.RecordRebuild(context.Background(), &core.RebuildRecord{Tick: uint64(i), Time: time.Now()})
		}(i)
	}
	wg.Wait()

	assert.Len(t, b.Rebuilds(), 50)
}
