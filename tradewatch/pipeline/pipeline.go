// Package pipeline feeds chat lines through the parser, the trade book and
// the service directory, and turns the book into daily market reports.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/narrative"
	"github.com/tortaapp/tradewatch/tradewatch/parser"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
	"github.com/tortaapp/tradewatch/tradewatch/services"
)

const defaultBatchSize = 500

// TradeSink persists trade records beyond the in-memory book.
type TradeSink interface {
	BulkInsert(ctx context.Context, records []pricing.TradeRecord) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// IdentitySource lists the names of items a record source holds.
type IdentitySource interface {
	Identities(ctx context.Context) ([]identity.Identity, error)
}

// Notifier is told about every item's story after a report.
type Notifier interface {
	Seed(itemID string, phase narrative.PhaseID)
	Observe(ctx context.Context, itemID, displayName string, story narrative.Story, avgPrice float64) (bool, error)
}

// Outcome says what a single line turned into.
type Outcome struct {
	Trade  bool
	Advert bool
}

// Summary counts what an IngestReader call did.
type Summary struct {
	Lines   int
	Skipped int
	Trades  int
	Adverts int
}

// MarketReport is the full picture of one item.
type MarketReport struct {
	pricing.ItemReport
	DisplayName string          `json:"displayName"`
	Story       narrative.Story `json:"story"`
}

type Pipeline struct {
	parser    *parser.Parser
	directory *services.Directory
	book      *Book
	analyzer  *pricing.Analyzer
	snapshots narrative.SnapshotStore
	source    pricing.RecordSource
	sink      TradeSink
	notifier  Notifier
	loc       *time.Location
	batchSize int
	retention time.Duration
	logger    *slog.Logger

	// externalSource is set when reports read from somewhere other than
	// the book.
	externalSource bool

	mu      sync.Mutex
	pending []pricing.TradeRecord
}

type Option func(*Pipeline)

// WithTradeSink also writes every trade to sink, in batches.
func WithTradeSink(sink TradeSink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithRecordSource makes reports read from src instead of the book.
func WithRecordSource(src pricing.RecordSource) Option {
	return func(p *Pipeline) { p.source = src }
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLocation sets the zone of chat log timestamps. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) { p.loc = loc }
}

// WithTradeRetention sets how long trades are kept by Cleanup.
func WithTradeRetention(d time.Duration) Option {
	return func(p *Pipeline) { p.retention = d }
}

func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(prs *parser.Parser, directory *services.Directory, engine *pricing.Engine, snapshots narrative.SnapshotStore, cacheExpiry time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		parser:    prs,
		directory: directory,
		book:      NewBook(),
		snapshots: snapshots,
		loc:       time.UTC,
		batchSize: defaultBatchSize,
		retention: 180 * 24 * time.Hour,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.externalSource = p.source != nil
	if !p.externalSource {
		p.source = p.book
	}
	p.analyzer = pricing.NewAnalyzer(engine, p.source, cacheExpiry)
	return p
}

func (p *Pipeline) Book() *Book {
	return p.book
}

// Ingest routes one chat line to the directory and, when it is a priced or
// unpriced offer for a known item, to the trade book.
func (p *Pipeline) Ingest(ctx context.Context, line parser.ChatLine) (Outcome, error) {
	var out Outcome
	out.Advert = p.directory.ProcessMessage(line.Message, line.Nick, line.Server, line.Timestamp)

	rec, err := p.parser.ExtractTrade(line)
	switch {
	case errors.Is(err, parser.ErrNotTrade):
		return out, nil
	case err != nil:
		p.logger.Debug("Skipping unparseable offer",
			slog.String("type", "ingest"),
			slog.String("nick", line.Nick),
			slog.Any("error", err))
		return out, nil
	}

	if !p.book.Add(rec) {
		return out, nil
	}
	out.Trade = true

	if p.sink == nil {
		return out, nil
	}
	p.mu.Lock()
	p.pending = append(p.pending, rec)
	full := len(p.pending) >= p.batchSize
	p.mu.Unlock()
	if full {
		if err := p.FlushTrades(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}

// IngestReader reads a chat log. day is the date of lines before the first
// "Logging started" header; each header moves the date forward.
func (p *Pipeline) IngestReader(ctx context.Context, r io.Reader, day time.Time) (Summary, error) {
	var sum Summary
	y, m, d := day.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, p.loc)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		text := scanner.Text()
		sum.Lines++

		if d, ok := parser.ParseLogDate(text, p.loc); ok {
			day = d
			continue
		}
		line, err := parser.ParseLine(text, day)
		if err != nil {
			sum.Skipped++
			continue
		}
		out, err := p.Ingest(ctx, line)
		if err != nil {
			return sum, err
		}
		if out.Trade {
			sum.Trades++
		}
		if out.Advert {
			sum.Adverts++
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("failed to read chat log: %w", err)
	}
	if err := p.FlushTrades(ctx); err != nil {
		return sum, err
	}
	return sum, nil
}

// FlushTrades writes pending trades to the sink. On failure they stay
// pending.
func (p *Pipeline) FlushTrades(ctx context.Context) error {
	if p.sink == nil {
		return nil
	}
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	inserted, err := p.sink.BulkInsert(ctx, batch)
	if err != nil {
		p.mu.Lock()
		p.pending = append(batch, p.pending...)
		p.mu.Unlock()
		return fmt.Errorf("failed to store %d trades: %w", len(batch), err)
	}
	p.logger.Debug("Trades stored",
		slog.String("type", "ingest"),
		slog.Int("batch", len(batch)),
		slog.Int("inserted", inserted))
	return nil
}

// LoadCatalog registers the names of items held by the record source so
// listings and searches cover trades stored before this process started.
// It is a no-op when the book is the source.
func (p *Pipeline) LoadCatalog(ctx context.Context) error {
	if !p.externalSource {
		return nil
	}

	if src, ok := p.source.(IdentitySource); ok {
		idents, err := src.Identities(ctx)
		if err != nil {
			return err
		}
		for _, ident := range idents {
			p.book.Remember(ident)
		}
		return nil
	}

	items, err := p.source.Items(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	for _, item := range items {
		records, err := p.source.Records(ctx, item)
		if err != nil {
			return err
		}
		ident := identity.Identity{ID: item}
		if len(records) > 0 {
			ident.DisplayName = records[0].DisplayName
		}
		p.book.Remember(ident)
	}
	return nil
}

// Items lists every item of the record source with its display name.
func (p *Pipeline) Items(ctx context.Context) ([]identity.Identity, error) {
	ids, err := p.source.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	out := make([]identity.Identity, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Identity{ID: id, DisplayName: p.book.DisplayName(id)})
	}
	return out, nil
}

// Search finds items by partial name.
func (p *Pipeline) Search(query string, limit int) []identity.Identity {
	return p.book.Search(query, limit)
}

// SeedPhases primes the notifier with the last remembered phase of every
// item so a restart does not announce unchanged markets.
func (p *Pipeline) SeedPhases(ctx context.Context) error {
	if p.notifier == nil {
		return nil
	}
	items, err := p.source.Items(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	for _, item := range items {
		timeline, err := p.snapshots.Timeline(ctx, item)
		if err != nil {
			return err
		}
		if len(timeline) > 0 {
			p.notifier.Seed(item, timeline[len(timeline)-1].Phase)
		}
	}
	return nil
}

// Report analyzes every item, records today's snapshot of each and tells
// the notifier. A failing snapshot or notification is logged, not returned.
func (p *Pipeline) Report(ctx context.Context, now time.Time) ([]MarketReport, error) {
	items, err := p.analyzer.AnalyzeAll(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]MarketReport, 0, len(items))
	for _, item := range items {
		story := narrative.Analyze(item.History, item.Volatility, item.Sellers, len(item.History))
		report := MarketReport{
			ItemReport:  item,
			DisplayName: p.book.DisplayName(item.ItemID),
			Story:       story,
		}
		reports = append(reports, report)

		snap := narrative.NewSnapshot(item.ItemID, story, item.History, now)
		if err := p.snapshots.Record(ctx, snap); err != nil {
			p.logger.Error("Failed to record snapshot",
				slog.String("type", "price"),
				slog.String("item", item.ItemID),
				slog.Any("error", err))
		}

		if p.notifier != nil {
			if _, err := p.notifier.Observe(ctx, item.ItemID, report.DisplayName, story, snap.AvgPrice); err != nil {
				p.logger.Error("Failed to announce phase change",
					slog.String("type", "price"),
					slog.String("item", item.ItemID),
					slog.Any("error", err))
			}
		}
	}
	return reports, nil
}

// Item reports on a single item without recording a snapshot.
func (p *Pipeline) Item(ctx context.Context, itemID string) (MarketReport, error) {
	item, err := p.analyzer.Report(ctx, itemID)
	if err != nil {
		return MarketReport{}, err
	}
	return MarketReport{
		ItemReport:  item,
		DisplayName: p.book.DisplayName(itemID),
		Story:       narrative.Analyze(item.History, item.Volatility, item.Sellers, len(item.History)),
	}, nil
}

// Cleanup drops expired profiles, trades and snapshots.
func (p *Pipeline) Cleanup(ctx context.Context, now time.Time) error {
	profiles := p.directory.Cleanup(now)
	cutoff := now.Add(-p.retention)
	trades := p.book.Prune(cutoff)

	if p.sink != nil {
		n, err := p.sink.DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		trades += n
	}

	snapshots, err := p.snapshots.Prune(ctx, now.Add(-narrative.Retention))
	if err != nil {
		return err
	}

	p.logger.Info("Cleanup finished",
		slog.String("type", "sys"),
		slog.Int("profiles", profiles),
		slog.Int("trades", trades),
		slog.Int("snapshots", snapshots))
	return nil
}

// Timeline returns an item's remembered daily snapshots, oldest first.
func (p *Pipeline) Timeline(ctx context.Context, itemID string) ([]narrative.Snapshot, error) {
	return p.snapshots.Timeline(ctx, itemID)
}
