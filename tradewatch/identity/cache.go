package identity

import (
	lru "github.com/hashicorp/golang-lru"
)

const defaultCacheSize = 10000

// Resolver memoises Parse for the ingestion hot path, where the same
// handful of item names repeat across tens of thousands of lines.
// It is safe for concurrent use.
type Resolver struct {
	cache *lru.Cache
}

// NewResolver creates a resolver holding up to size entries. A size of zero
// or less selects the default.
func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, _ := lru.New(size)
	return &Resolver{cache: cache}
}

func (r *Resolver) Resolve(raw string) Identity {
	return r.Parse(raw).Identity
}

func (r *Resolver) Parse(raw string) Resolution {
	if v, ok := r.cache.Get(raw); ok {
		return v.(Resolution)
	}
	res := Parse(raw)
	r.cache.Add(raw, res)
	return res
}

// Len returns the number of memoised names.
func (r *Resolver) Len() int {
	return r.cache.Len()
}
