package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tortaapp/tradewatch/tradewatch/narrative"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

func TestTradeLogMapping(t *testing.T) {
	ts := time.Date(2025, 3, 4, 12, 30, 0, 0, time.UTC)
	rec := pricing.TradeRecord{
		ID:          "b0c1",
		ItemID:      "iron_lump",
		DisplayName: "Iron Lump",
		RawName:     "iron lumps",
		Price:       150,
		Quantity:    100,
		Quality:     70,
		Material:    "iron",
		Rarity:      "rare",
		OrderType:   pricing.OrderWTS,
		Seller:      "Alice",
		Server:      "Harmony",
		Timestamp:   ts,
	}

	row := ToTradeLog(rec)
	assert.Equal(t, "b0c1", row.TradeID)
	assert.Equal(t, "WTS", row.OrderType)
	assert.Equal(t, rec, FromTradeLog(row))
}

func TestTradeLogMapping_UnknownOrder(t *testing.T) {
	row := ToTradeLog(pricing.TradeRecord{OrderType: "PC"})
	assert.Equal(t, pricing.OrderUnknown, FromTradeLog(row).OrderType)
}

func TestTradeLogMapping_NormalizesZone(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2025, 3, 4, 13, 0, 0, 0, loc)
	row := ToTradeLog(pricing.TradeRecord{Timestamp: ts})
	assert.Equal(t, time.UTC, row.Timestamp.Location())
	assert.True(t, row.Timestamp.Equal(ts))
}

func TestMarketSnapshotMapping(t *testing.T) {
	s := narrative.Snapshot{
		ItemID:    "iron_lump",
		Date:      "2025-03-04",
		Phase:     narrative.PhaseGrowing,
		Mood:      narrative.MoodOptimistic,
		AvgPrice:  142.5,
		Volume:    12,
		Timestamp: time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC),
	}
	row := ToMarketSnapshot(s)
	assert.Equal(t, "GROWING", row.Phase)
	assert.Equal(t, s, FromMarketSnapshot(row))
}
