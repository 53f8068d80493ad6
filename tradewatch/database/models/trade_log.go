package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TradeLog is one parsed trade offer from chat.
type TradeLog struct {
	bun.BaseModel `bun:"table:trade_logs,alias:tl"`

	ID          int64     `bun:"id,pk,autoincrement"`
	TradeID     string    `bun:"trade_id,notnull,unique"`
	ItemID      string    `bun:"item_id,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	RawName     string    `bun:"raw_name"`
	Price       int64     `bun:"price,notnull,default:0"`
	Quantity    int       `bun:"quantity,notnull,default:1"`
	Quality     float64   `bun:"quality,notnull,default:0"`
	Material    string    `bun:"material"`
	Rarity      string    `bun:"rarity"`
	OrderType   string    `bun:"order_type,notnull"`
	Seller      string    `bun:"seller,notnull"`
	Server      string    `bun:"server"`
	Timestamp   time.Time `bun:"timestamp,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
