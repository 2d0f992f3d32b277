// pkg/core/rebuild.go
package core

import "time"

// TriggerKind is the reason a chain rebuild was requested.
type TriggerKind uint8

const (
	TriggerManualReset TriggerKind = iota
	TriggerRadiusChanged
	TriggerCogsChanged
	// TriggerTeardown marks records written when the chain is removed.
	TriggerTeardown
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerManualReset:
		return "manual_reset"
	case TriggerRadiusChanged:
		return "radius_changed"
	case TriggerCogsChanged:
		return "cogs_changed"
	case TriggerTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// RebuildOutcome classifies how a rebuild ended.
type RebuildOutcome string

const (
	OutcomeBuilt    RebuildOutcome = "built"
	OutcomeGeometry RebuildOutcome = "geometry_rejected"
	OutcomeAssembly RebuildOutcome = "assembly_failed"
	OutcomeTornDown RebuildOutcome = "torn_down"
	// OutcomeTeardown means the old chain could not be removed and is still
	// in place.
	OutcomeTeardown RebuildOutcome = "teardown_failed"
)

// RebuildRecord is the journal entry for one rebuild attempt.
type RebuildRecord struct {
	ID              uint
	Time            time.Time
	Tick            uint64
	Trigger         TriggerKind
	Coalesced       int
	Outcome         RebuildOutcome
	Error           string
	ChainID         uint64
	Perimeter       float64
	LinkCount       int
	TotalRestLength float64
	Duration        time.Duration
	Cogs            []CogProfile
	Path            []Point
}
