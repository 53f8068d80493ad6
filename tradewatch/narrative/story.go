package narrative

import (
	"fmt"
	"math"

	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

const (
	minHistory   = 3
	trendWindow  = 7
	volumeWindow = 3
)

// Story is the narrative result for one item.
type Story struct {
	Phase       Phase    `json:"phase"`
	Mood        Mood     `json:"mood"`
	Insights    []string `json:"insights"`
	PriceSlope  float64  `json:"priceSlope"`
	VolumeSlope float64  `json:"volumeSlope"`
	ActiveDays  int      `json:"activeDays"`
}

// Analyze classifies an item's market. history must be oldest first. With
// fewer than three points or no volatility metric the market is reported
// dormant with full confidence.
func Analyze(history []pricing.HistoryPoint, vol *pricing.VolatilityMetrics, sellerCount, distinctDays int) Story {
	if len(history) < minHistory || vol == nil {
		phase := insufficient
		phase.Explanation = append([]string(nil), insufficient.Explanation...)
		return Story{
			Phase: phase,
			Mood: Mood{
				ID:          MoodBored,
				Label:       "Bored",
				Emoji:       "💤",
				Description: "Nobody is looking at this.",
			},
			Insights:   []string{"Insufficient data for narrative analysis."},
			ActiveDays: distinctDays,
		}
	}

	window := tail(history, trendWindow)
	prices := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, h := range window {
		prices[i] = h.AvgPrice
		volumes[i] = float64(h.Volume)
	}
	priceSlope := Slope(prices)
	volumeSlope := Slope(volumes)

	var recentVolume float64
	recent := tail(history, volumeWindow)
	for _, h := range recent {
		recentVolume += float64(h.Volume)
	}
	recentVolume /= float64(len(recent))

	id := classify(priceSlope, vol.Score, recentVolume, sellerCount)
	phase, _ := PhaseInfo(id)

	var insights []string
	switch {
	case priceSlope > 0:
		insights = append(insights, fmt.Sprintf("Price is gaining momentum (%.1f%% trend).", priceSlope*100))
	case priceSlope < 0:
		insights = append(insights, "Price momentum is negative.")
	}
	if vol.Score > 80 {
		insights = append(insights, "Extreme risk warning.")
	}

	return Story{
		Phase:       phase,
		Mood:        MoodFor(id),
		Insights:    insights,
		PriceSlope:  priceSlope,
		VolumeSlope: volumeSlope,
		ActiveDays:  distinctDays,
	}
}

// classify is an ordered decision tree. The conditions overlap, so the
// first match wins.
func classify(priceSlope, volatility, recentVolume float64, sellers int) PhaseID {
	switch {
	case recentVolume < 1 && sellers <= 1:
		return PhaseDormant
	case volatility > 75:
		return PhaseChaotic
	case priceSlope < 0 && volatility > 50:
		return PhaseCollapsing
	case priceSlope > 0 && volatility > 60 && sellers < 3:
		return PhaseInflated
	case priceSlope > 0 && volatility < 60:
		return PhaseGrowing
	default:
		return PhaseStable
	}
}

// Slope is the ordinary least squares slope of values against their index.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	s := (n*sumXY - sumX*sumY) / denom
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

func tail(history []pricing.HistoryPoint, n int) []pricing.HistoryPoint {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
