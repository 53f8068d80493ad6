package narrative

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

func history(prices []float64, volume int) []pricing.HistoryPoint {
	out := make([]pricing.HistoryPoint, len(prices))
	for i, p := range prices {
		out[i] = pricing.HistoryPoint{
			Date:     fmt.Sprintf("2025-01-%02d", i+1),
			AvgPrice: p,
			MinPrice: p,
			MaxPrice: p,
			Volume:   volume,
		}
	}
	return out
}

var (
	rising  = []float64{10, 11, 12, 13, 14}
	falling = []float64{14, 13, 12, 11, 10}
	flat    = []float64{10, 10, 10, 10, 10}
)

func TestAnalyze_NotEnoughData(t *testing.T) {
	tests := []struct {
		name    string
		history []pricing.HistoryPoint
		vol     *pricing.VolatilityMetrics
	}{
		{"no history", nil, &pricing.VolatilityMetrics{Score: 10}},
		{"two points", history([]float64{1, 2}, 5), &pricing.VolatilityMetrics{Score: 10}},
		{"no volatility", history(rising, 5), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.history, tt.vol, 5, 5)
			assert.Equal(t, PhaseDormant, got.Phase.ID)
			assert.Equal(t, 1.0, got.Phase.Confidence)
			assert.Equal(t, []string{"Not enough data to determine active phase."}, got.Phase.Explanation)
			assert.Equal(t, MoodBored, got.Mood.ID)
			assert.Equal(t, "Nobody is looking at this.", got.Mood.Description)
			assert.Equal(t, []string{"Insufficient data for narrative analysis."}, got.Insights)
		})
	}
}

func TestAnalyze_Phases(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		volume  int
		score   float64
		sellers int
		want    PhaseID
		mood    MoodID
	}{
		{"no volume and one seller", rising, 0, 90, 1, PhaseDormant, MoodBored},
		{"no volume but many sellers", flat, 0, 20, 4, PhaseStable, MoodPeaceful},
		{"extreme volatility", falling, 5, 80, 4, PhaseChaotic, MoodPanicked},
		{"volatile fall", falling, 5, 55, 4, PhaseCollapsing, MoodDepressed},
		{"volatile rise with few sellers", rising, 5, 65, 2, PhaseInflated, MoodEuphoric},
		{"volatile rise with many sellers", rising, 5, 65, 5, PhaseStable, MoodPeaceful},
		{"steady rise", rising, 5, 30, 5, PhaseGrowing, MoodOptimistic},
		{"calm fall", falling, 5, 40, 5, PhaseStable, MoodPeaceful},
		{"flat", flat, 5, 20, 5, PhaseStable, MoodPeaceful},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vol := &pricing.VolatilityMetrics{Score: tt.score}
			got := Analyze(history(tt.prices, tt.volume), vol, tt.sellers, len(tt.prices))
			assert.Equal(t, tt.want, got.Phase.ID)
			assert.Equal(t, tt.mood, got.Mood.ID)

			want, ok := PhaseInfo(tt.want)
			require.True(t, ok)
			assert.Equal(t, want, got.Phase)
		})
	}
}

func TestAnalyze_NeverGrowingWhenFalling(t *testing.T) {
	for score := 0.0; score <= 100; score += 5 {
		got := Analyze(history(falling, 5), &pricing.VolatilityMetrics{Score: score}, 4, 5)
		if got.Phase.ID == PhaseGrowing || got.Phase.ID == PhaseInflated {
			t.Errorf("Analyze() at score %v got = %v", score, got.Phase.ID)
		}
	}
}

func TestAnalyze_Insights(t *testing.T) {
	got := Analyze(history(rising, 5), &pricing.VolatilityMetrics{Score: 30}, 5, 5)
	assert.Equal(t, []string{"Price is gaining momentum (100.0% trend)."}, got.Insights)
	assert.InDelta(t, 1.0, got.PriceSlope, 1e-9)
	assert.InDelta(t, 0.0, got.VolumeSlope, 1e-9)
	assert.Equal(t, 5, got.ActiveDays)

	got = Analyze(history(falling, 5), &pricing.VolatilityMetrics{Score: 85}, 5, 5)
	assert.Equal(t, []string{"Price momentum is negative.", "Extreme risk warning."}, got.Insights)

	got = Analyze(history(flat, 5), &pricing.VolatilityMetrics{Score: 80}, 5, 5)
	assert.Empty(t, got.Insights)
}

func TestAnalyze_UsesRecentWindow(t *testing.T) {
	prices := []float64{100, 80, 60, 10, 11, 12, 13, 14, 15, 16}
	got := Analyze(history(prices, 5), &pricing.VolatilityMetrics{Score: 30}, 5, len(prices))
	assert.Equal(t, PhaseGrowing, got.Phase.ID)
	assert.InDelta(t, 1.0, got.PriceSlope, 1e-9)
}

func TestSlope(t *testing.T) {
	tests := []struct {
		values []float64
		want   float64
	}{
		{nil, 0},
		{[]float64{5}, 0},
		{[]float64{1, 2, 3}, 1},
		{[]float64{3, 3, 3}, 0},
		{[]float64{10, 8, 6, 4}, -2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Slope(tt.values), 1e-9, "Slope(%v)", tt.values)
	}
}

func TestMoodFor(t *testing.T) {
	assert.Equal(t, MoodNervous, MoodFor("SIDEWAYS").ID)
	assert.Equal(t, "🚀", MoodFor(PhaseGrowing).Emoji)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	day := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	story := Analyze(history(rising, 5), &pricing.VolatilityMetrics{Score: 30}, 5, 5)
	require.NoError(t, store.Record(ctx, NewSnapshot("iron_lump", story, history(rising, 5), day)))
	require.NoError(t, store.Record(ctx, NewSnapshot("iron_lump", story, history(rising, 7), day.Add(time.Hour))))
	require.NoError(t, store.Record(ctx, NewSnapshot("iron_lump", story, history(rising, 5), day.Add(24*time.Hour))))
	require.NoError(t, store.Record(ctx, NewSnapshot("oak_log", story, nil, day)))

	timeline, err := store.Timeline(ctx, "iron_lump")
	require.NoError(t, err)
	require.Len(t, timeline, 2, "one snapshot per item per day")
	assert.Equal(t, "2025-05-01", timeline[0].Date)
	assert.Equal(t, 7, timeline[0].Volume, "later snapshot replaces the same day")
	assert.Equal(t, 14.0, timeline[0].AvgPrice)
	assert.Equal(t, PhaseGrowing, timeline[0].Phase)
	assert.Equal(t, "2025-05-02", timeline[1].Date)

	require.NoError(t, store.Record(ctx, NewSnapshot("oak_log", story, nil, day.Add(100*24*time.Hour))))
	timeline, err = store.Timeline(ctx, "iron_lump")
	require.NoError(t, err)
	assert.Empty(t, timeline, "snapshots past retention are dropped")

	removed, err := store.Prune(ctx, day.Add(200*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
