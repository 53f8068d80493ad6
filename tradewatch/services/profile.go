package services

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Entry is one service a trader offers. Timestamps are Unix milliseconds.
// Score is derived at read time and never trusted from storage.
type Entry struct {
	Category      Category `json:"category"`
	LastSeen      int64    `json:"lastSeen"`
	EvidenceCount int      `json:"evidenceCount"`
	LastEvidence  string   `json:"lastEvidence"`
	Score         float64  `json:"score"`
}

// Profile is everything known about one trader.
type Profile struct {
	Nick          string  `json:"nick"`
	Server        string  `json:"server"`
	HasLink       bool    `json:"hasLink"`
	ExternalLink  string  `json:"externalLink,omitempty"`
	LastSeenAny   int64   `json:"lastSeenAny"`
	Services      []Entry `json:"services"`
	ActivityScore float64 `json:"activityScore"`
	SearchIndex   string  `json:"searchIndex,omitempty"`
}

// ErrNoProfiles is returned by a ProfileStore that has nothing saved yet.
var ErrNoProfiles = errors.New("no saved profiles")

// ProfileStore persists the full profile set, read and written as a whole.
type ProfileStore interface {
	Load(ctx context.Context) ([]Profile, error)
	Save(ctx context.Context, profiles []Profile) error
}

// Score is the reputation of an entry as of now: a step decay on the age of
// the last evidence, plus a small bonus for repeated evidence.
func Score(e Entry, now time.Time) float64 {
	age := now.Sub(time.UnixMilli(e.LastSeen))

	var decay float64
	switch {
	case age <= 12*time.Hour:
		decay = 1.0
	case age <= 48*time.Hour:
		decay = 0.5
	case age <= 168*time.Hour:
		decay = 0.1
	}

	count := e.EvidenceCount
	if count > 10 {
		count = 10
	}
	frequency := float64(count) / 10
	return decay*0.8 + frequency*0.2
}

// Entry returns the entry for c, if the profile has one.
func (p *Profile) Entry(c Category) (*Entry, bool) {
	for i := range p.Services {
		if p.Services[i].Category == c {
			return &p.Services[i], true
		}
	}
	return nil, false
}

func (p *Profile) clone() Profile {
	cp := *p
	cp.Services = append([]Entry(nil), p.Services...)
	return cp
}

func (p *Profile) rebuildSearchIndex() {
	terms := make([]string, 0, len(p.Services)+2)
	terms = append(terms, p.Nick, p.Server)
	for _, s := range p.Services {
		terms = append(terms, string(s.Category))
	}
	p.SearchIndex = strings.ToLower(strings.Join(terms, " "))
}
