package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tortaapp/tradewatch/tradewatch/services"
	"github.com/tortaapp/tradewatch/tradewatch/services/mock"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newDirectory(t *testing.T) (*services.Directory, *mock.MockProfileStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mock.NewMockProfileStore(ctrl)
	return services.NewDirectory(services.DefaultConfig(), services.NewClassifier(), store), store
}

func profileOf(t *testing.T, dir *services.Directory, nick string, now time.Time) services.Profile {
	t.Helper()
	for _, p := range dir.Profiles(services.Filter{}, now) {
		if p.Nick == nick {
			return p
		}
	}
	t.Fatalf("profile %q not found", nick)
	return services.Profile{}
}

func TestDirectory_ProcessMessage_NewProfile(t *testing.T) {
	dir, _ := newDirectory(t)

	ok := dir.ProcessMessage("Imping   services @ Harmony", "Bob", "Harmony", t0)
	require.True(t, ok)
	assert.True(t, dir.Dirty())

	p := profileOf(t, dir, "Bob", t0)
	assert.Equal(t, "Harmony", p.Server)
	assert.Equal(t, t0.UnixMilli(), p.LastSeenAny)
	require.Len(t, p.Services, 1)
	assert.Equal(t, services.CategoryImping, p.Services[0].Category)
	assert.Equal(t, 1, p.Services[0].EvidenceCount)
	assert.Equal(t, "Imping services @ Harmony", p.Services[0].LastEvidence)
	assert.InDelta(t, 0.82, p.Services[0].Score, 1e-9)
	assert.InDelta(t, 0.82, p.ActivityScore, 1e-9)
	assert.Contains(t, p.SearchIndex, "bob")
	assert.Contains(t, p.SearchIndex, "imping")
}

func TestDirectory_ProcessMessage_Ignored(t *testing.T) {
	dir, _ := newDirectory(t)

	tests := []struct {
		name    string
		message string
		nick    string
	}{
		{"no nick", "Imping services", ""},
		{"request", "WTB imping", "Bob"},
		{"not an advert", "hello there everyone", "Bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dir.ProcessMessage(tt.message, tt.nick, "Harmony", t0); got {
				t.Errorf("ProcessMessage() got = %v, want false", got)
			}
		})
	}
	assert.Equal(t, 0, dir.Len())
	assert.False(t, dir.Dirty())
}

func TestDirectory_ProcessMessage_MinConfidence(t *testing.T) {
	cfg := services.DefaultConfig()
	cfg.MinConfidence = 0.5
	dir := services.NewDirectory(cfg, services.NewClassifier(), nil)

	assert.False(t, dir.ProcessMessage("Service available, pm me", "Bob", "Harmony", t0))
	assert.True(t, dir.ProcessMessage("Smithing service, pm me", "Bob", "Harmony", t0))
}

func TestDirectory_ProcessMessage_Cooldown(t *testing.T) {
	dir, _ := newDirectory(t)
	msg := "Imping services @ Harmony"

	require.True(t, dir.ProcessMessage(msg, "Bob", "Harmony", t0))
	require.True(t, dir.ProcessMessage(msg+"!", "Bob", "Harmony", t0.Add(5*time.Minute)))

	p := profileOf(t, dir, "Bob", t0.Add(5*time.Minute))
	assert.Equal(t, 1, p.Services[0].EvidenceCount, "within cooldown")
	assert.Equal(t, t0.Add(5*time.Minute).UnixMilli(), p.Services[0].LastSeen, "lastSeen advances during cooldown")
	assert.Equal(t, msg, p.Services[0].LastEvidence)

	later := t0.Add(25 * time.Minute)
	require.True(t, dir.ProcessMessage("Imping services again", "Bob", "Harmony", later))

	p = profileOf(t, dir, "Bob", later)
	assert.Equal(t, 2, p.Services[0].EvidenceCount)
	assert.Equal(t, "Imping services again", p.Services[0].LastEvidence)
	assert.Equal(t, later.UnixMilli(), p.Services[0].LastSeen)
}

func TestDirectory_ProcessMessage_Duplicate(t *testing.T) {
	dir, _ := newDirectory(t)
	msg := "Imping services @ Harmony"

	assert.True(t, dir.ProcessMessage(msg, "Bob", "Harmony", t0))
	assert.False(t, dir.ProcessMessage(msg, "Bob", "Harmony", t0.Add(20*time.Second)))
	assert.True(t, dir.ProcessMessage(msg, "Alice", "Harmony", t0.Add(20*time.Second)))
}

func TestDirectory_ProcessMessage_ProfileFields(t *testing.T) {
	dir, _ := newDirectory(t)

	require.True(t, dir.ProcessMessage("Smithing service, see discord.gg/bob", "Bob", "Harmony", t0.Add(time.Hour)))
	require.True(t, dir.ProcessMessage("Imping service, pm", "Bob", "UNKNOWN", t0))
	require.True(t, dir.ProcessMessage("Tailoring service available", "Bob", "", t0.Add(30*time.Minute)))

	p := profileOf(t, dir, "Bob", t0.Add(time.Hour))
	assert.True(t, p.HasLink, "hasLink never reverts")
	assert.Equal(t, "discord.gg/bob", p.ExternalLink)
	assert.Equal(t, "Harmony", p.Server)
	assert.Equal(t, t0.Add(time.Hour).UnixMilli(), p.LastSeenAny, "lastSeenAny keeps the max")
	assert.Len(t, p.Services, 3)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		age   time.Duration
		count int
		want  float64
	}{
		{"fresh", time.Hour, 1, 0.82},
		{"half day", 12 * time.Hour, 10, 1.0},
		{"two days", 30 * time.Hour, 5, 0.5},
		{"one week", 100 * time.Hour, 3, 0.14},
		{"stale", 200 * time.Hour, 20, 0.2},
		{"stale single", 200 * time.Hour, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := services.Entry{LastSeen: t0.Add(-tt.age).UnixMilli(), EvidenceCount: tt.count}
			assert.InDelta(t, tt.want, services.Score(e, t0), 1e-9)
		})
	}
}

func TestScore_NonIncreasing(t *testing.T) {
	e := services.Entry{LastSeen: t0.UnixMilli(), EvidenceCount: 4}
	prev := services.Score(e, t0)
	for h := 1; h <= 24*10; h++ {
		cur := services.Score(e, t0.Add(time.Duration(h)*time.Hour))
		if cur > prev {
			t.Fatalf("score rose after %dh: %v > %v", h, cur, prev)
		}
		prev = cur
	}
}

func seeded(t *testing.T, now time.Time) *services.Directory {
	t.Helper()
	dir, store := newDirectory(t)
	dir.SetClock(func() time.Time { return now })

	ms := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }
	store.EXPECT().Load(gomock.Any()).Return([]services.Profile{
		{
			Nick: "Alice", Server: "Harmony", LastSeenAny: ms(time.Hour),
			Services: []services.Entry{
				{Category: services.CategoryImping, LastSeen: ms(time.Hour), EvidenceCount: 5},
				{Category: services.CategorySmithing, LastSeen: ms(30 * time.Hour), EvidenceCount: 10},
			},
		},
		{
			Nick: "Bob", Server: "Melody", LastSeenAny: ms(2 * time.Hour),
			Services: []services.Entry{
				{Category: services.CategorySmithing, LastSeen: ms(2 * time.Hour), EvidenceCount: 3},
			},
		},
		{
			Nick: "Carol", Server: "Harmony", LastSeenAny: ms(10 * 24 * time.Hour),
			Services: []services.Entry{
				{Category: services.CategoryMasonry, LastSeen: ms(10 * 24 * time.Hour), EvidenceCount: 2},
			},
		},
		{
			Nick: "Dave", Server: "Harmony", LastSeenAny: ms(40 * 24 * time.Hour),
			Services: []services.Entry{
				{Category: services.CategoryImping, LastSeen: ms(40 * 24 * time.Hour), EvidenceCount: 9},
			},
		},
	}, nil)

	require.NoError(t, dir.Load(context.Background()))
	return dir
}

func nicks(profiles []services.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Nick)
	}
	return out
}

func TestDirectory_Profiles(t *testing.T) {
	now := t0
	dir := seeded(t, now)

	assert.Equal(t, 3, dir.Len(), "Load drops profiles past retention")
	assert.True(t, dir.Dirty(), "dropping profiles needs a flush")

	tests := []struct {
		name   string
		filter services.Filter
		want   []string
	}{
		{"activity order", services.Filter{}, []string{"Alice", "Bob", "Carol"}},
		{"by category score", services.Filter{Category: services.CategorySmithing}, []string{"Bob", "Alice"}},
		{"by server", services.Filter{Server: "Harmony"}, []string{"Alice", "Carol"}},
		{"by query", services.Filter{Query: "MASON"}, []string{"Carol"}},
		{"no match", services.Filter{Category: services.CategoryLogistics}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nicks(dir.Profiles(tt.filter, now)))
		})
	}

	assert.Equal(t, []string{"Alice", "Bob"}, nicks(dir.Listing(services.Filter{}, now)))
}

func TestDirectory_ProfilesAreCopies(t *testing.T) {
	dir := seeded(t, t0)

	got := dir.Profiles(services.Filter{}, t0)
	got[0].Services[0].EvidenceCount = 99
	got[0].Nick = "Mallory"

	again := dir.Profiles(services.Filter{}, t0)
	assert.Equal(t, "Alice", again[0].Nick)
	assert.Equal(t, 5, again[0].Services[0].EvidenceCount)
}

func TestDirectory_Cleanup(t *testing.T) {
	dir := seeded(t, t0)

	assert.Equal(t, 0, dir.Cleanup(t0))
	assert.Equal(t, 1, dir.Cleanup(t0.Add(25*24*time.Hour)))
	assert.Equal(t, 2, dir.Len())
}

func TestDirectory_Load(t *testing.T) {
	t.Run("nothing saved", func(t *testing.T) {
		dir, store := newDirectory(t)
		store.EXPECT().Load(gomock.Any()).Return(nil, services.ErrNoProfiles)

		require.NoError(t, dir.Load(context.Background()))
		assert.Equal(t, 0, dir.Len())
	})

	t.Run("store failure", func(t *testing.T) {
		dir, store := newDirectory(t)
		boom := errors.New("disk on fire")
		store.EXPECT().Load(gomock.Any()).Return(nil, boom)

		err := dir.Load(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestDirectory_Flush(t *testing.T) {
	dir, store := newDirectory(t)
	ctx := context.Background()

	require.NoError(t, dir.Flush(ctx), "clean directory writes nothing")

	require.True(t, dir.ProcessMessage("Smithing services", "Bob", "Harmony", t0))
	require.True(t, dir.ProcessMessage("Imping services", "Alice", "Harmony", t0))

	boom := errors.New("bucket unavailable")
	var saved []services.Profile
	gomock.InOrder(
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(boom),
		store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, profiles []services.Profile) error {
				saved = profiles
				return nil
			}),
	)

	err := dir.Flush(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, dir.Dirty(), "failed flush is retried")

	require.NoError(t, dir.Flush(ctx))
	assert.False(t, dir.Dirty())
	assert.Equal(t, []string{"Alice", "Bob"}, nicks(saved))

	require.NoError(t, dir.Flush(ctx), "nothing changed since the last flush")
}

func TestFlusher_FlushesOnShutdown(t *testing.T) {
	dir, store := newDirectory(t)
	require.True(t, dir.ProcessMessage("Smithing services", "Bob", "Harmony", t0))

	store.EXPECT().Save(gomock.Any(), gomock.Len(1)).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := services.NewFlusher(dir, time.Hour).Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("flusher did not stop")
	}
	assert.False(t, dir.Dirty())
}

func TestFlusher_FlushesOnTick(t *testing.T) {
	dir, store := newDirectory(t)
	require.True(t, dir.ProcessMessage("Smithing services", "Bob", "Harmony", t0))

	flushed := make(chan struct{})
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []services.Profile) error {
			close(flushed)
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := services.NewFlusher(dir, 10*time.Millisecond).Start(ctx)

	select {
	case <-flushed:
	case <-time.After(5 * time.Second):
		t.Fatal("flusher never flushed")
	}
	cancel()
	<-done
}
