// Package services detects service adverts in trade chat and keeps a
// directory of the traders offering them.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const unknownServer = "UNKNOWN"

// Config holds the directory tunables.
type Config struct {
	// MinConfidence drops weaker intents before they reach a profile.
	MinConfidence float64
	// EvidenceCooldown is the minimum gap between two counted pieces of
	// evidence for the same service.
	EvidenceCooldown time.Duration
	// Retention hides, and Cleanup deletes, profiles idle for longer.
	Retention time.Duration
	// ListingWindow is how recently a trader must be seen to be listed.
	ListingWindow time.Duration
	// DuplicateTTL is how long a repeated message is remembered.
	DuplicateTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.4,
		EvidenceCooldown: 15 * time.Minute,
		Retention:        30 * 24 * time.Hour,
		ListingWindow:    7 * 24 * time.Hour,
		DuplicateTTL:     5 * time.Minute,
	}
}

// Filter narrows Profiles. Zero fields do not filter.
type Filter struct {
	Category Category
	Server   string
	Query    string
}

// Directory holds one profile per trader. All methods are safe for
// concurrent use; updates are serialised by a single mutex. Nothing here
// performs I/O except Load and Flush, which go through the injected store.
type Directory struct {
	mu         sync.Mutex
	cfg        Config
	classifier *Classifier
	store      ProfileStore
	profiles   map[string]*Profile
	recent     map[string]time.Time
	dirty      bool
	now        func() time.Time
	logger     *slog.Logger
}

func NewDirectory(cfg Config, classifier *Classifier, store ProfileStore) *Directory {
	return &Directory{
		cfg:        cfg,
		classifier: classifier,
		store:      store,
		profiles:   make(map[string]*Profile),
		recent:     make(map[string]time.Time),
		now:        time.Now,
		logger:     slog.Default(),
	}
}

// SetClock replaces the wall clock used by Load and the scheduled jobs.
func (d *Directory) SetClock(now func() time.Time) {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
}

// ProcessMessage classifies one chat message and folds any advertised
// services into the sender's profile. It reports whether a profile changed.
func (d *Directory) ProcessMessage(message, nick, server string, ts time.Time) bool {
	if nick == "" {
		return false
	}

	intents := d.classifier.Classify(message)
	valid := intents[:0:0]
	for _, in := range intents {
		if in.Confidence >= d.cfg.MinConfidence {
			valid = append(valid, in)
		}
	}
	if len(valid) == 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isDuplicate(message, nick, ts) {
		return false
	}

	tsMillis := ts.UnixMilli()
	link := ExtractLink(message)

	profile, ok := d.profiles[nick]
	if !ok {
		profile = &Profile{Nick: nick, Server: server, LastSeenAny: tsMillis}
		d.profiles[nick] = profile
	}
	if tsMillis > profile.LastSeenAny {
		profile.LastSeenAny = tsMillis
	}
	if server != "" && server != unknownServer {
		profile.Server = server
	}
	if link != "" {
		profile.HasLink = true
		profile.ExternalLink = link
	}

	evidence := strings.TrimSpace(reWhitespace.ReplaceAllString(message, " "))
	cooldown := d.cfg.EvidenceCooldown.Milliseconds()
	for _, in := range valid {
		entry, ok := profile.Entry(in.Category)
		if !ok {
			profile.Services = append(profile.Services, Entry{
				Category:      in.Category,
				LastSeen:      tsMillis,
				EvidenceCount: 1,
				LastEvidence:  evidence,
			})
			continue
		}
		if tsMillis-entry.LastSeen >= cooldown {
			entry.EvidenceCount++
			entry.LastEvidence = evidence
		}
		if tsMillis > entry.LastSeen {
			entry.LastSeen = tsMillis
		}
	}

	profile.rebuildSearchIndex()
	d.dirty = true
	return true
}

// isDuplicate remembers nick, message length and minute for DuplicateTTL.
// The caller holds d.mu.
func (d *Directory) isDuplicate(message, nick string, ts time.Time) bool {
	for k, seen := range d.recent {
		if ts.Sub(seen) > d.cfg.DuplicateTTL {
			delete(d.recent, k)
		}
	}
	key := nick + ":" + strconv.Itoa(len(message)) + ":" + strconv.FormatInt(ts.UnixMilli()/60000, 10)
	if _, ok := d.recent[key]; ok {
		return true
	}
	d.recent[key] = ts
	return false
}

// Profiles returns scored copies of every live profile matching filter.
// Profiles idle past the retention window or with no remaining score are
// left out. With a category filter the result is ordered by that
// category's score, otherwise by activity score.
func (d *Directory) Profiles(filter Filter, now time.Time) []Profile {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := now.Add(-d.cfg.Retention).UnixMilli()
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]Profile, 0, len(d.profiles))
	for _, stored := range d.profiles {
		p := stored.clone()
		p.ActivityScore = 0
		for i := range p.Services {
			p.Services[i].Score = Score(p.Services[i], now)
			if p.Services[i].Score > p.ActivityScore {
				p.ActivityScore = p.Services[i].Score
			}
		}
		if p.LastSeenAny <= cutoff || p.ActivityScore == 0 {
			continue
		}
		if filter.Server != "" && p.Server != filter.Server {
			continue
		}
		if query != "" && !strings.Contains(p.SearchIndex, query) {
			continue
		}
		if filter.Category != "" {
			e, ok := p.Entry(filter.Category)
			if !ok || e.Score <= 0 {
				continue
			}
		}
		out = append(out, p)
	}

	key := func(p *Profile) float64 { return p.ActivityScore }
	if filter.Category != "" {
		key = func(p *Profile) float64 {
			e, _ := p.Entry(filter.Category)
			return e.Score
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := key(&out[i]), key(&out[j])
		if a != b {
			return a > b
		}
		return out[i].Nick < out[j].Nick
	})
	return out
}

// Listing returns the profiles seen within the listing window.
func (d *Directory) Listing(filter Filter, now time.Time) []Profile {
	cutoff := now.Add(-d.cfg.ListingWindow).UnixMilli()
	all := d.Profiles(filter, now)
	out := all[:0]
	for _, p := range all {
		if p.LastSeenAny > cutoff {
			out = append(out, p)
		}
	}
	return out
}

// Cleanup deletes profiles idle for longer than the retention window and
// returns how many were removed.
func (d *Directory) Cleanup(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cleanupLocked(now)
}

func (d *Directory) cleanupLocked(now time.Time) int {
	cutoff := now.Add(-d.cfg.Retention).UnixMilli()
	deleted := 0
	for nick, p := range d.profiles {
		if p.LastSeenAny < cutoff {
			delete(d.profiles, nick)
			deleted++
		}
	}
	if deleted > 0 {
		d.dirty = true
	}
	return deleted
}

// Len returns the number of stored profiles, live or not.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.profiles)
}

// Dirty reports whether there are changes not yet flushed.
func (d *Directory) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// Load replaces the in-memory profiles with the stored set and drops
// anything past retention. An empty store is not an error.
func (d *Directory) Load(ctx context.Context) error {
	profiles, err := d.store.Load(ctx)
	if errors.Is(err, ErrNoProfiles) {
		d.logger.Info("No saved service profiles", slog.String("type", "service"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load service profiles: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.profiles = make(map[string]*Profile, len(profiles))
	for i := range profiles {
		p := profiles[i]
		if p.Nick == "" {
			continue
		}
		p.rebuildSearchIndex()
		d.profiles[p.Nick] = &p
	}
	dropped := d.cleanupLocked(d.now())
	d.dirty = dropped > 0

	d.logger.Info("Service profiles loaded",
		slog.String("type", "service"),
		slog.Int("profiles", len(d.profiles)),
		slog.Int("expired", dropped))
	return nil
}

// Flush writes the profile set if anything changed since the last
// successful flush. On failure the directory stays dirty so the next
// flush retries.
func (d *Directory) Flush(ctx context.Context) error {
	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return nil
	}
	snapshot := make([]Profile, 0, len(d.profiles))
	for _, p := range d.profiles {
		snapshot = append(snapshot, p.clone())
	}
	d.dirty = false
	d.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Nick < snapshot[j].Nick
	})

	start := time.Now()
	if err := d.store.Save(ctx, snapshot); err != nil {
		d.mu.Lock()
		d.dirty = true
		d.mu.Unlock()
		return fmt.Errorf("failed to save service profiles: %w", err)
	}

	d.logger.Debug("Service profiles flushed",
		slog.String("type", "service"),
		slog.Int("profiles", len(snapshot)),
		slog.Duration("took", time.Since(start)))
	return nil
}
