package v1

import (
	"testing"
	"time"

	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *SessionData {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cogs := []core.CogProfile{
		{Role: core.FrontChainring, Center: core.Point{}, Radius: 5},
		{Role: core.RearCassette, Center: core.Point{X: 40}, Radius: 5},
	}
	return &SessionData{
		Service:   "drivetrain",
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Rebuilds: []core.RebuildRecord{
			{ID: 1, Time: start.Add(time.Second), Tick: 1, Trigger: core.TriggerManualReset, Outcome: core.OutcomeBuilt,
				ChainID: 1, Perimeter: 119.8981234567, LinkCount: 60, TotalRestLength: 119.5, Duration: 1500 * time.Microsecond,
				Cogs: cogs, Path: []core.Point{{X: -6.35, Y: 0}, {X: 1.0000004, Y: -6.35}}},
			{ID: 2, Time: start.Add(2 * time.Second), Tick: 40, Trigger: core.TriggerRadiusChanged, Coalesced: 2,
				Outcome: core.OutcomeGeometry, Error: "building hull: degenerate", Cogs: cogs},
			{ID: 3, Time: start.Add(3 * time.Second), Tick: 41, Trigger: core.TriggerCogsChanged, Outcome: core.OutcomeAssembly, Error: "world locked"},
			{ID: 4, Time: start.Add(4 * time.Second), Tick: 90, Trigger: core.TriggerTeardown, Outcome: core.OutcomeTornDown},
		},
	}
}

func TestBuildSummary(t *testing.T) {
	export := Build(sampleSession())

	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.Equal(t, "drivetrain", export.Service)
	assert.Equal(t, "2026-03-01T09:00:00Z", export.StartTime)
	assert.Equal(t, "2026-03-01T09:01:00Z", export.EndTime)
	assert.Equal(t, Summary{Total: 4, Built: 1, Rejected: 1, Failed: 1, TornDown: 1, Coalesced: 2}, export.Summary)
}

func TestBuildRebuilds(t *testing.T) {
	export := Build(sampleSession())
	require.Len(t, export.Rebuilds, 4)

	built := export.Rebuilds[0]
	assert.Equal(t, "manual_reset", built.Trigger)
	assert.Equal(t, "built", built.Outcome)
	assert.Equal(t, 119.898123, built.Perimeter)
	assert.Equal(t, 1.5, built.DurationMs)
	require.Len(t, built.Cogs, 2)
	assert.Equal(t, Cog{Role: "rear", Center: [2]float64{40, 0}, Radius: 5}, built.Cogs[1])
	assert.Equal(t, [][]float64{{-6.35, 0}, {1, -6.35}}, built.Path)

	rejected := export.Rebuilds[1]
	assert.Equal(t, "geometry_rejected", rejected.Outcome)
	assert.Equal(t, "building hull: degenerate", rejected.Error)
	assert.Nil(t, rejected.Path)
}

func TestBuildEvents(t *testing.T) {
	export := Build(sampleSession())
	require.Len(t, export.Events, 4)
	assert.Equal(t, []any{uint64(40), "geometry_rejected", "radius_changed", 0}, export.Events[1])
}

func TestBuildEmpty(t *testing.T) {
	export := Build(&SessionData{Service: "drivetrain"})
	assert.Empty(t, export.Rebuilds)
	assert.NotNil(t, export.Events)
	assert.Equal(t, Summary{}, export.Summary)
}
