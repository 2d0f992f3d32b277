package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bikesim/drivetrain/internal/model"
	"github.com/bikesim/drivetrain/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// parseTrigger maps a stored trigger name back to its kind.
func parseTrigger(s string) core.TriggerKind {
	for _, k := range []core.TriggerKind{core.TriggerManualReset, core.TriggerRadiusChanged, core.TriggerCogsChanged, core.TriggerTeardown} {
		if k.String() == s {
			return k
		}
	}
	return core.TriggerManualReset
}

// wktToPath parses a closed WKT LineString and drops the closing vertex.
func wktToPath(wkt string) ([]core.Point, error) {
	if wkt == "" {
		return nil, nil
	}
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("decoding path: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil, fmt.Errorf("decoding path: want LINESTRING, got %s", g.Type())
	}
	seq := ls.Coordinates()
	n := seq.Length()
	if n > 1 && seq.GetXY(0) == seq.GetXY(n-1) {
		n--
	}
	path := make([]core.Point, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		path[i] = core.Point{X: xy.X, Y: xy.Y}
	}
	return path, nil
}

// RebuildToCore converts a GORM model.Rebuild to a core.RebuildRecord.
func RebuildToCore(r model.Rebuild) (core.RebuildRecord, error) {
	var cogs []core.CogProfile
	if len(r.Cogs) > 0 {
		if err := json.Unmarshal(r.Cogs, &cogs); err != nil {
			return core.RebuildRecord{}, fmt.Errorf("decoding cogs: %w", err)
		}
	}
	path, err := wktToPath(r.PathWKT)
	if err != nil {
		return core.RebuildRecord{}, err
	}
	if len(cogs) == 0 {
		cogs = nil
	}
	return core.RebuildRecord{
		ID:              r.ID,
		Time:            r.Time,
		Tick:            r.Tick,
		Trigger:         parseTrigger(r.Trigger),
		Coalesced:       r.Coalesced,
		Outcome:         core.RebuildOutcome(r.Outcome),
		Error:           r.Error,
		ChainID:         r.ChainID,
		Perimeter:       r.Perimeter,
		LinkCount:       r.LinkCount,
		TotalRestLength: r.TotalRestLength,
		Duration:        time.Duration(r.DurationMs * float64(time.Millisecond)),
		Cogs:            cogs,
		Path:            path,
	}, nil
}
