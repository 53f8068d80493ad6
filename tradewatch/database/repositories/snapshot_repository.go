package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tortaapp/tradewatch/tradewatch/database/models"
	"github.com/tortaapp/tradewatch/tradewatch/narrative"
)

// SnapshotRepository is a narrative.SnapshotStore backed by market_snapshots.
type SnapshotRepository interface {
	narrative.SnapshotStore
}

type snapshotRepository struct {
	db *bun.DB
}

func NewSnapshotRepository(db *bun.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Record(ctx context.Context, s narrative.Snapshot) error {
	row := ToMarketSnapshot(s)
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (item_id, date) DO UPDATE").
		Set("phase = EXCLUDED.phase").
		Set("mood = EXCLUDED.mood").
		Set("avg_price = EXCLUDED.avg_price").
		Set("volume = EXCLUDED.volume").
		Set("timestamp = EXCLUDED.timestamp").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record snapshot for %s: %w", s.ItemID, err)
	}
	return nil
}

func (r *snapshotRepository) Timeline(ctx context.Context, itemID string) ([]narrative.Snapshot, error) {
	var rows []models.MarketSnapshot
	err := r.db.NewSelect().
		Model(&rows).
		Where("item_id = ?", itemID).
		Order("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline for %s: %w", itemID, err)
	}

	out := make([]narrative.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromMarketSnapshot(row))
	}
	return out, nil
}

func (r *snapshotRepository) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*models.MarketSnapshot)(nil)).
		Where("timestamp < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(affected), nil
}

func ToMarketSnapshot(s narrative.Snapshot) models.MarketSnapshot {
	return models.MarketSnapshot{
		ItemID:    s.ItemID,
		Date:      s.Date,
		Phase:     string(s.Phase),
		Mood:      string(s.Mood),
		AvgPrice:  s.AvgPrice,
		Volume:    s.Volume,
		Timestamp: s.Timestamp.UTC(),
	}
}

func FromMarketSnapshot(m models.MarketSnapshot) narrative.Snapshot {
	return narrative.Snapshot{
		ItemID:    m.ItemID,
		Date:      m.Date,
		Phase:     narrative.PhaseID(m.Phase),
		Mood:      narrative.MoodID(m.Mood),
		AvgPrice:  m.AvgPrice,
		Volume:    m.Volume,
		Timestamp: m.Timestamp,
	}
}
