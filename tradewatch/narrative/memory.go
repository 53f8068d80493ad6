package narrative

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

// Retention is how long daily snapshots are kept.
const Retention = 90 * 24 * time.Hour

// Snapshot is the remembered market state of one item on one day.
type Snapshot struct {
	ItemID    string    `json:"itemId"`
	Date      string    `json:"date"`
	Phase     PhaseID   `json:"phase"`
	Mood      MoodID    `json:"mood"`
	AvgPrice  float64   `json:"avgPrice"`
	Volume    int       `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotStore keeps at most one snapshot per item per day.
type SnapshotStore interface {
	// Record stores s, replacing any snapshot for the same item and date.
	Record(ctx context.Context, s Snapshot) error
	// Timeline returns an item's snapshots oldest first.
	Timeline(ctx context.Context, itemID string) ([]Snapshot, error)
	// Prune deletes snapshots taken before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// NewSnapshot captures story for itemID. The price and volume come from
// the latest history point, if any.
func NewSnapshot(itemID string, story Story, history []pricing.HistoryPoint, now time.Time) Snapshot {
	s := Snapshot{
		ItemID:    itemID,
		Date:      now.UTC().Format("2006-01-02"),
		Phase:     story.Phase.ID,
		Mood:      story.Mood.ID,
		Timestamp: now,
	}
	if len(history) > 0 {
		last := history[len(history)-1]
		s.AvgPrice = last.AvgPrice
		s.Volume = last.Volume
	}
	return s
}

// MemoryStore is an in-process SnapshotStore. Recording a snapshot also
// drops anything older than Retention.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Record(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := false
	for i := range m.snapshots {
		if m.snapshots[i].ItemID == s.ItemID && m.snapshots[i].Date == s.Date {
			m.snapshots[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		m.snapshots = append(m.snapshots, s)
	}
	m.pruneLocked(s.Timestamp.Add(-Retention))
	return nil
}

func (m *MemoryStore) Timeline(_ context.Context, itemID string) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Snapshot
	for _, s := range m.snapshots {
		if s.ItemID == itemID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(cutoff), nil
}

func (m *MemoryStore) pruneLocked(cutoff time.Time) int {
	kept := m.snapshots[:0]
	for _, s := range m.snapshots {
		if !s.Timestamp.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	removed := len(m.snapshots) - len(kept)
	m.snapshots = kept
	return removed
}
