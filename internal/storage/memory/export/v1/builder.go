package v1

import (
	"math"
	"time"

	"github.com/bikesim/drivetrain/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Service   string
	StartTime time.Time
	EndTime   time.Time
	Rebuilds  []core.RebuildRecord
}

// Build creates an Export from the session data
func Build(data *SessionData) Export {
	export := Export{
		FormatVersion: FormatVersion,
		Service:       data.Service,
		StartTime:     data.StartTime.UTC().Format(time.RFC3339Nano),
		EndTime:       data.EndTime.UTC().Format(time.RFC3339Nano),
		Rebuilds:      make([]Rebuild, 0, len(data.Rebuilds)),
		Events:        make([][]any, 0, len(data.Rebuilds)),
	}

	for _, rec := range data.Rebuilds {
		export.Summary.Total++
		export.Summary.Coalesced += rec.Coalesced
		switch rec.Outcome {
		case core.OutcomeBuilt:
			export.Summary.Built++
		case core.OutcomeGeometry:
			export.Summary.Rejected++
		case core.OutcomeAssembly:
			export.Summary.Failed++
		case core.OutcomeTeardown:
			export.Summary.Stuck++
		case core.OutcomeTornDown:
			export.Summary.TornDown++
		}

		export.Rebuilds = append(export.Rebuilds, buildRebuild(rec))
		export.Events = append(export.Events, []any{rec.Tick, string(rec.Outcome), rec.Trigger.String(), rec.LinkCount})
	}

	return export
}

func buildRebuild(rec core.RebuildRecord) Rebuild {
	r := Rebuild{
		ID:              rec.ID,
		Time:            rec.Time.UTC().Format(time.RFC3339Nano),
		Tick:            rec.Tick,
		Trigger:         rec.Trigger.String(),
		Coalesced:       rec.Coalesced,
		Outcome:         string(rec.Outcome),
		Error:           rec.Error,
		ChainID:         rec.ChainID,
		Perimeter:       round(rec.Perimeter),
		LinkCount:       rec.LinkCount,
		TotalRestLength: round(rec.TotalRestLength),
		DurationMs:      float64(rec.Duration.Microseconds()) / 1000,
		Cogs:            make([]Cog, 0, len(rec.Cogs)),
	}
	for _, c := range rec.Cogs {
		r.Cogs = append(r.Cogs, Cog{
			Role:   c.Role.String(),
			Center: [2]float64{round(c.Center.X), round(c.Center.Y)},
			Radius: round(c.Radius),
		})
	}
	if len(rec.Path) > 0 {
		r.Path = make([][]float64, len(rec.Path))
		for i, p := range rec.Path {
			r.Path[i] = []float64{round(p.X), round(p.Y)}
		}
	}
	return r
}

// round keeps exported coordinates readable; 1e-6 is far below link size.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
