package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/internal/geo"
	"github.com/bikesim/drivetrain/pkg/core"
)

// wrapOutput is what `chainsim wrap` prints.
type wrapOutput struct {
	Cogs       []core.CogProfile `json:"cogs"`
	Clearance  float64           `json:"clearance"`
	LinkCount  int               `json:"linkCount"`
	Perimeter  float64           `json:"perimeter"`
	RestLength float64           `json:"restLength"`
	Hull       []core.Point      `json:"hull"`
	Points     []core.Point      `json:"points"`
	WKT        string            `json:"wkt"`
}

func configuredProfiles(cogs config.CogsConfig) []core.CogProfile {
	return []core.CogProfile{
		{Role: core.FrontChainring, Center: core.Point{X: cogs.Front.X, Y: cogs.Front.Y}, Radius: cogs.Front.Radius},
		{Role: core.RearCassette, Center: core.Point{X: cogs.Rear.X, Y: cogs.Rear.Y}, Radius: cogs.Rear.Radius},
	}
}

func wrapParams(cc config.ChainConfig) geo.WrapParams {
	return geo.WrapParams{
		Clearance:     cc.Clearance,
		SamplesPerCog: cc.SamplesPerCog,
		LinkCount:     cc.LinkCount,
	}
}

// runWrap computes the chain path for the configured cogs without a world.
func runWrap(w io.Writer) error {
	cc := config.GetChainConfig()
	profiles := configuredProfiles(config.GetCogsConfig())

	path, err := geo.WrapPath(profiles, wrapParams(cc))
	if err != nil {
		return fmt.Errorf("failed to wrap cogs: %w", err)
	}

	var rest float64
	for i, p := range path.Points {
		rest += p.Distance(path.Points[(i+1)%len(path.Points)])
	}

	out := wrapOutput{
		Cogs:       profiles,
		Clearance:  cc.Clearance,
		LinkCount:  len(path.Points),
		Perimeter:  path.Perimeter,
		RestLength: rest,
		Hull:       path.Hull,
		Points:     path.Points,
		WKT:        geo.Ring(path.Points).AsText(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
