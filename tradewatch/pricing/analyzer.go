package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	reportCacheSize      = 5000
	maxConcurrentItems   = 8
	defaultReportTimeout = 30 * time.Second
)

// RecordSource lists items and their trade records.
type RecordSource interface {
	Items(ctx context.Context) ([]string, error)
	Records(ctx context.Context, itemID string) ([]TradeRecord, error)
}

// ItemReport is everything the engine derives for one item.
type ItemReport struct {
	ItemID     string             `json:"itemId"`
	Stats      Statistics         `json:"stats"`
	Confidence float64            `json:"confidence"`
	History    []HistoryPoint     `json:"history"`
	Volatility *VolatilityMetrics `json:"volatility,omitempty"`
	Health     *MarketHealth      `json:"health,omitempty"`
	Sellers    int                `json:"sellers"`
}

// ProcessingStats tracks a single AnalyzeAll run
type ProcessingStats struct {
	StartTime time.Time
	ItemCount int
	Processed int32
	Cached    int32
	Errors    int32
}

type cachedReport struct {
	report      ItemReport
	fingerprint string
	timestamp   time.Time
}

// Analyzer runs the engine over every item of a RecordSource in parallel.
// Items are independent, so the only shared state is the report cache.
type Analyzer struct {
	engine      *Engine
	source      RecordSource
	cache       *lru.Cache
	cacheExpiry time.Duration
	sem         *semaphore.Weighted
	mu          sync.Mutex
	logger      *slog.Logger
}

func NewAnalyzer(engine *Engine, source RecordSource, cacheExpiry time.Duration) *Analyzer {
	cache, _ := lru.New(reportCacheSize)
	return &Analyzer{
		engine:      engine,
		source:      source,
		cache:       cache,
		cacheExpiry: cacheExpiry,
		sem:         semaphore.NewWeighted(maxConcurrentItems),
		logger:      slog.Default(),
	}
}

// Report analyzes a single item.
func (a *Analyzer) Report(ctx context.Context, itemID string) (ItemReport, error) {
	records, err := a.source.Records(ctx, itemID)
	if err != nil {
		return ItemReport{}, fmt.Errorf("failed to load records for %s: %w", itemID, err)
	}
	report, _ := a.report(itemID, records)
	return report, nil
}

// AnalyzeAll reports on every item except the unknown sentinel, ordered by
// item id. A failing item is logged and skipped.
func (a *Analyzer) AnalyzeAll(ctx context.Context) ([]ItemReport, error) {
	// One run at a time keeps the cache consistent.
	a.mu.Lock()
	defer a.mu.Unlock()

	items, err := a.source.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	stats := &ProcessingStats{StartTime: time.Now(), ItemCount: len(items)}
	results := make([]ItemReport, 0, len(items))
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, itemID := range items {
		if itemID == "" || itemID == "unknown" {
			continue
		}
		itemID := itemID

		if err := a.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer a.sem.Release(1)

			itemCtx, cancel := context.WithTimeout(gctx, defaultReportTimeout)
			defer cancel()

			records, err := a.source.Records(itemCtx, itemID)
			if err != nil {
				atomic.AddInt32(&stats.Errors, 1)
				a.logger.Error("Failed to load item records",
					slog.String("type", "price"),
					slog.String("item", itemID),
					slog.Any("error", err))
				return nil
			}

			report, hit := a.report(itemID, records)
			if hit {
				atomic.AddInt32(&stats.Cached, 1)
			}
			atomic.AddInt32(&stats.Processed, 1)

			resultsMu.Lock()
			results = append(results, report)
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ItemID < results[j].ItemID
	})

	a.logger.Info("Price analysis completed",
		slog.String("type", "price"),
		slog.Int("items", stats.ItemCount),
		slog.Int("processed", int(atomic.LoadInt32(&stats.Processed))),
		slog.Int("cached", int(atomic.LoadInt32(&stats.Cached))),
		slog.Int("errors", int(atomic.LoadInt32(&stats.Errors))),
		slog.Duration("took", time.Since(stats.StartTime)))
	return results, nil
}

func (a *Analyzer) report(itemID string, records []TradeRecord) (ItemReport, bool) {
	fp := fingerprint(records)
	if v, ok := a.cache.Get(itemID); ok {
		cached := v.(cachedReport)
		if cached.fingerprint == fp && a.engine.now().Sub(cached.timestamp) < a.cacheExpiry {
			return cached.report, true
		}
	}

	stats := a.engine.Analyze(records)
	report := ItemReport{
		ItemID:     itemID,
		Stats:      stats,
		Confidence: Confidence(stats),
		History:    History(records),
		Volatility: Volatility(records),
		Health:     Health(records),
		Sellers:    DistinctSellers(records),
	}
	a.cache.Add(itemID, cachedReport{report: report, fingerprint: fp, timestamp: a.engine.now()})
	return report, false
}

// fingerprint changes whenever a record is added or the newest one changes.
func fingerprint(records []TradeRecord) string {
	var latest time.Time
	var sum int64
	for _, r := range records {
		sum += r.Price
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	return fmt.Sprintf("%d:%d:%d", len(records), sum, latest.UnixMilli())
}
