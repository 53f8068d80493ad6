package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MarketSnapshot is the narrative state of one item on one day.
type MarketSnapshot struct {
	bun.BaseModel `bun:"table:market_snapshots,alias:ms"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ItemID    string    `bun:"item_id,notnull,unique:item_date"`
	Date      string    `bun:"date,notnull,unique:item_date"`
	Phase     string    `bun:"phase,notnull"`
	Mood      string    `bun:"mood,notnull"`
	AvgPrice  float64   `bun:"avg_price,notnull"`
	Volume    int       `bun:"volume,notnull"`
	Timestamp time.Time `bun:"timestamp,notnull"`
}
