// Package v1 contains the v1 export format for rebuild journals.
package v1

// FormatVersion identifies this layout in exported files.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion int       `json:"formatVersion"`
	Service       string    `json:"service"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	Summary       Summary   `json:"summary"`
	Rebuilds      []Rebuild `json:"rebuilds"`
	// Events is a compact timeline: [tick, outcome, trigger, linkCount]
	Events [][]any `json:"events"`
}

// Summary counts rebuilds by outcome
type Summary struct {
	Total     int `json:"total"`
	Built     int `json:"built"`
	Rejected  int `json:"geometryRejected"`
	Failed    int `json:"assemblyFailed"`
	Stuck     int `json:"teardownFailed"`
	TornDown  int `json:"tornDown"`
	Coalesced int `json:"coalesced"`
}

// Rebuild is one journal entry
type Rebuild struct {
	ID              uint        `json:"id"`
	Time            string      `json:"time"`
	Tick            uint64      `json:"tick"`
	Trigger         string      `json:"trigger"`
	Coalesced       int         `json:"coalesced"`
	Outcome         string      `json:"outcome"`
	Error           string      `json:"error,omitempty"`
	ChainID         uint64      `json:"chainId,omitempty"`
	Perimeter       float64     `json:"perimeter"`
	LinkCount       int         `json:"linkCount"`
	TotalRestLength float64     `json:"totalRestLength"`
	DurationMs      float64     `json:"durationMs"`
	Cogs            []Cog       `json:"cogs"`
	Path            [][]float64 `json:"path,omitempty"`
}

// Cog is a cog outline at rebuild time
type Cog struct {
	Role   string     `json:"role"`
	Center [2]float64 `json:"center"`
	Radius float64    `json:"radius"`
}
