package identity

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// catalogItems implements fuzzy.Source over display names
type catalogItems []Identity

func (items catalogItems) Len() int {
	return len(items)
}

func (items catalogItems) String(i int) string {
	return items[i].DisplayName
}

// Catalog is the set of identities seen so far, searchable by partial text.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]Identity
	items catalogItems
}

func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]Identity)}
}

// Add registers id. Unknown identities are ignored. Reports whether id was new.
func (c *Catalog) Add(id Identity) bool {
	if id.IsUnknown() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id.ID]; ok {
		return false
	}
	c.byID[id.ID] = id
	c.items = append(c.items, id)
	return true
}

func (c *Catalog) Get(id string) (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ident, ok := c.byID[id]
	return ident, ok
}

// IDs returns every registered id in ascending order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Search returns up to limit identities matching query, best first.
// Exact aliases are expanded first, so "lg anvil" finds "Large Anvil".
func (c *Catalog) Search(query string, limit int) []Identity {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if alias, ok := Aliases[strings.ToLower(query)]; ok {
		query = alias
	}

	c.mu.RLock()
	items := make(catalogItems, len(c.items))
	copy(items, c.items)
	c.mu.RUnlock()

	matches := fuzzy.FindFrom(query, items)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]Identity, len(matches))
	for i, m := range matches {
		results[i] = items[m.Index]
	}
	return results
}
