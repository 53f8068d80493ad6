package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

// Book is the in-memory trade log, grouped by item and kept in time order.
// It is the default pricing.RecordSource.
type Book struct {
	mu      sync.RWMutex
	records map[string][]pricing.TradeRecord
	seen    map[string]struct{}
	catalog *identity.Catalog
}

func NewBook() *Book {
	return &Book{
		records: make(map[string][]pricing.TradeRecord),
		seen:    make(map[string]struct{}),
		catalog: identity.NewCatalog(),
	}
}

// Add stores r unless a record with the same id is already held. Records of
// the unknown item are never stored.
func (b *Book) Add(r pricing.TradeRecord) bool {
	if r.ItemID == "" || r.ItemID == identity.Unknown {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID != "" {
		if _, ok := b.seen[r.ID]; ok {
			return false
		}
		b.seen[r.ID] = struct{}{}
	}

	list := b.records[r.ItemID]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(r.Timestamp)
	})
	list = append(list, pricing.TradeRecord{})
	copy(list[i+1:], list[i:])
	list[i] = r
	b.records[r.ItemID] = list

	b.catalog.Add(identity.Identity{ID: r.ItemID, DisplayName: r.DisplayName})
	return true
}

func (b *Book) Items(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	items := make([]string, 0, len(b.records))
	for id := range b.records {
		items = append(items, id)
	}
	sort.Strings(items)
	return items, nil
}

// Records returns a copy of an item's records, oldest first.
func (b *Book) Records(_ context.Context, itemID string) ([]pricing.TradeRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]pricing.TradeRecord(nil), b.records[itemID]...), nil
}

// Prune drops records older than cutoff and returns how many went.
func (b *Book) Prune(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for item, list := range b.records {
		i := sort.Search(len(list), func(i int) bool {
			return !list[i].Timestamp.Before(cutoff)
		})
		if i == 0 {
			continue
		}
		for _, r := range list[:i] {
			delete(b.seen, r.ID)
		}
		removed += i
		if i == len(list) {
			delete(b.records, item)
			continue
		}
		b.records[item] = append([]pricing.TradeRecord(nil), list[i:]...)
	}
	return removed
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, list := range b.records {
		n += len(list)
	}
	return n
}

// DisplayName returns the name an item was first seen under, or the id.
func (b *Book) DisplayName(itemID string) string {
	if ident, ok := b.catalog.Get(itemID); ok {
		return ident.DisplayName
	}
	return itemID
}

// Remember registers an item name without any records, for items held by
// another record source.
func (b *Book) Remember(ident identity.Identity) bool {
	if ident.ID == "" || ident.ID == identity.Unknown {
		return false
	}
	if ident.DisplayName == "" {
		ident.DisplayName = ident.ID
	}
	return b.catalog.Add(ident)
}

// Search finds known items by partial name.
func (b *Book) Search(query string, limit int) []identity.Identity {
	return b.catalog.Search(query, limit)
}
