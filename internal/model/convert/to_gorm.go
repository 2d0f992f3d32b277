// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/bikesim/drivetrain/internal/geo"
	"github.com/bikesim/drivetrain/internal/model"
	"github.com/bikesim/drivetrain/pkg/core"
	"gorm.io/datatypes"
)

// cogsToJSON converts cog profiles to datatypes.JSON for DB storage.
func cogsToJSON(cogs []core.CogProfile) (datatypes.JSON, error) {
	if len(cogs) == 0 {
		return datatypes.JSON("[]"), nil
	}
	data, err := json.Marshal(cogs)
	if err != nil {
		return nil, fmt.Errorf("encoding cogs: %w", err)
	}
	return datatypes.JSON(data), nil
}

// pathToWKT renders the link origins as a closed WKT LineString.
func pathToWKT(path []core.Point) string {
	if len(path) == 0 {
		return ""
	}
	return geo.Ring(path).AsText()
}

// CoreToRebuild converts a core.RebuildRecord to a GORM model.Rebuild.
func CoreToRebuild(rec core.RebuildRecord) (model.Rebuild, error) {
	cogs, err := cogsToJSON(rec.Cogs)
	if err != nil {
		return model.Rebuild{}, err
	}
	return model.Rebuild{
		ID:              rec.ID,
		Time:            rec.Time,
		Tick:            rec.Tick,
		Trigger:         rec.Trigger.String(),
		Coalesced:       rec.Coalesced,
		Outcome:         string(rec.Outcome),
		Error:           rec.Error,
		ChainID:         rec.ChainID,
		Perimeter:       rec.Perimeter,
		LinkCount:       rec.LinkCount,
		TotalRestLength: rec.TotalRestLength,
		DurationMs:      float64(rec.Duration.Microseconds()) / 1000,
		Cogs:            cogs,
		PathWKT:         pathToWKT(rec.Path),
	}, nil
}
