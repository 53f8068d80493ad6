package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tortaapp/tradewatch/tradewatch/database/models"
	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

type TradeRepository interface {
	DB() *bun.DB
	BulkInsert(ctx context.Context, records []pricing.TradeRecord) (int, error)
	ListByItem(ctx context.Context, itemID string) ([]pricing.TradeRecord, error)
	ListSince(ctx context.Context, since time.Time) ([]pricing.TradeRecord, error)
	DistinctItems(ctx context.Context) ([]string, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Identities(ctx context.Context) ([]identity.Identity, error)

	// Items and Records make the repository a pricing.RecordSource.
	Items(ctx context.Context) ([]string, error)
	Records(ctx context.Context, itemID string) ([]pricing.TradeRecord, error)
}

type tradeRepository struct {
	db *bun.DB
}

func NewTradeRepository(db *bun.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) DB() *bun.DB {
	return r.db
}

// BulkInsert stores records and skips any whose trade id is already known.
// It returns the number of new rows.
func (r *tradeRepository) BulkInsert(ctx context.Context, records []pricing.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	logs := make([]models.TradeLog, 0, len(records))
	for _, rec := range records {
		logs = append(logs, ToTradeLog(rec))
	}

	res, err := r.db.NewInsert().
		Model(&logs).
		On("CONFLICT (trade_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade logs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(affected), nil
}

func (r *tradeRepository) ListByItem(ctx context.Context, itemID string) ([]pricing.TradeRecord, error) {
	var logs []models.TradeLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("item_id = ?", itemID).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade logs for %s: %w", itemID, err)
	}
	return fromTradeLogs(logs), nil
}

func (r *tradeRepository) ListSince(ctx context.Context, since time.Time) ([]pricing.TradeRecord, error) {
	var logs []models.TradeLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent trade logs: %w", err)
	}
	return fromTradeLogs(logs), nil
}

// DistinctItems lists every known item id except the unknown sentinel.
func (r *tradeRepository) DistinctItems(ctx context.Context) ([]string, error) {
	var items []string
	err := r.db.NewSelect().
		Model((*models.TradeLog)(nil)).
		ColumnExpr("DISTINCT item_id").
		Where("item_id != ?", identity.Unknown).
		OrderExpr("item_id ASC").
		Scan(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct items: %w", err)
	}
	return items, nil
}

// Identities lists every known item with the name it was first traded
// under.
func (r *tradeRepository) Identities(ctx context.Context) ([]identity.Identity, error) {
	var rows []struct {
		ItemID      string `bun:"item_id"`
		DisplayName string `bun:"display_name"`
	}
	err := r.db.NewSelect().
		Model((*models.TradeLog)(nil)).
		DistinctOn("item_id").
		Column("item_id", "display_name").
		Where("item_id != ?", identity.Unknown).
		Order("item_id ASC", "timestamp ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get item identities: %w", err)
	}

	out := make([]identity.Identity, 0, len(rows))
	for _, row := range rows {
		name := row.DisplayName
		if name == "" {
			name = row.ItemID
		}
		out = append(out, identity.Identity{ID: row.ItemID, DisplayName: name})
	}
	return out, nil
}

func (r *tradeRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*models.TradeLog)(nil)).
		Where("timestamp < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old trade logs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(affected), nil
}

func (r *tradeRepository) Items(ctx context.Context) ([]string, error) {
	return r.DistinctItems(ctx)
}

func (r *tradeRepository) Records(ctx context.Context, itemID string) ([]pricing.TradeRecord, error) {
	return r.ListByItem(ctx, itemID)
}

// ToTradeLog maps a record onto its table row.
func ToTradeLog(rec pricing.TradeRecord) models.TradeLog {
	return models.TradeLog{
		TradeID:     rec.ID,
		ItemID:      rec.ItemID,
		DisplayName: rec.DisplayName,
		RawName:     rec.RawName,
		Price:       rec.Price,
		Quantity:    rec.Quantity,
		Quality:     rec.Quality,
		Material:    rec.Material,
		Rarity:      rec.Rarity,
		OrderType:   string(rec.OrderType),
		Seller:      rec.Seller,
		Server:      rec.Server,
		Timestamp:   rec.Timestamp.UTC(),
	}
}

// FromTradeLog maps a table row back onto a record.
func FromTradeLog(l models.TradeLog) pricing.TradeRecord {
	return pricing.TradeRecord{
		ID:          l.TradeID,
		ItemID:      l.ItemID,
		DisplayName: l.DisplayName,
		RawName:     l.RawName,
		Price:       l.Price,
		Quantity:    l.Quantity,
		Quality:     l.Quality,
		Material:    l.Material,
		Rarity:      l.Rarity,
		OrderType:   pricing.ParseOrderType(l.OrderType),
		Seller:      l.Seller,
		Server:      l.Server,
		Timestamp:   l.Timestamp,
	}
}

func fromTradeLogs(logs []models.TradeLog) []pricing.TradeRecord {
	records := make([]pricing.TradeRecord, 0, len(logs))
	for _, l := range logs {
		records = append(records, FromTradeLog(l))
	}
	return records
}
