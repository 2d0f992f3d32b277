package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&JournalInfo{},
	&Rebuild{},
}

// JournalInfo describes the simulator instance that owns the journal
type JournalInfo struct {
	ID          uint      `gorm:"primarykey"`
	CreatedAt   time.Time `json:"createdAt"`
	ServiceName string    `json:"serviceName" gorm:"size:127"`
	Backend     string    `json:"backend" gorm:"size:32"`
}

// TableName returns the table name for JournalInfo
func (*JournalInfo) TableName() string {
	return "journal_infos"
}

// Rebuild is one journalled chain rebuild attempt
type Rebuild struct {
	ID              uint           `json:"id" gorm:"primarykey"`
	Time            time.Time      `json:"time" gorm:"index:idx_rebuild_time"`
	Tick            uint64         `json:"tick"`
	Trigger         string         `json:"trigger" gorm:"size:32"`
	Coalesced       int            `json:"coalesced"`
	Outcome         string         `json:"outcome" gorm:"size:32;index:idx_rebuild_outcome"`
	Error           string         `json:"error"`
	ChainID         uint64         `json:"chainId"`
	Perimeter       float64        `json:"perimeter"`
	LinkCount       int            `json:"linkCount"`
	TotalRestLength float64        `json:"totalRestLength"`
	DurationMs      float64        `json:"durationMs"`
	Cogs            datatypes.JSON `json:"cogs"`
	PathWKT         string         `json:"pathWkt" gorm:"type:text"` // closed LINESTRING of link origins
}

// TableName returns the table name for Rebuild
func (*Rebuild) TableName() string {
	return "chain_rebuilds"
}
