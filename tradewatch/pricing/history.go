package pricing

import (
	"math"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// HistoryPoint aggregates one UTC day of trades for an item.
type HistoryPoint struct {
	Date     string  `json:"date"`
	AvgPrice float64 `json:"avgPrice"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
	Volume   int     `json:"volume"`
}

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// VolatilityMetrics describes how erratic an item's market is. Score runs
// from 0 (flat) to 100 (coefficient of variation of 100% or more).
type VolatilityMetrics struct {
	Score             float64 `json:"score"`
	PriceVariance     float64 `json:"priceVariance"`
	SupplyConsistency float64 `json:"supplyConsistency"`
	DemandStability   float64 `json:"demandStability"`
	Trend             Trend   `json:"trend"`
}

// History groups records by UTC day, oldest first. AvgPrice is weighted by
// quantity and Volume is the total quantity traded.
func History(records []TradeRecord) []HistoryPoint {
	type bucket struct {
		sum      float64
		qty      int
		min, max float64
	}
	days := make(map[string]*bucket)
	for _, r := range records {
		if !r.valid() {
			continue
		}
		day := r.Timestamp.UTC().Format(dateLayout)
		price := float64(r.Price)
		b, ok := days[day]
		if !ok {
			b = &bucket{min: price, max: price}
			days[day] = b
		}
		q := r.quantity()
		b.sum += price * float64(q)
		b.qty += q
		b.min = math.Min(b.min, price)
		b.max = math.Max(b.max, price)
	}

	points := make([]HistoryPoint, 0, len(days))
	for day, b := range days {
		points = append(points, HistoryPoint{
			Date:     day,
			AvgPrice: b.sum / float64(b.qty),
			MinPrice: b.min,
			MaxPrice: b.max,
			Volume:   b.qty,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// Volatility derives VolatilityMetrics from raw records. It returns nil when
// there is nothing to measure.
func Volatility(records []TradeRecord) *VolatilityMetrics {
	prices := make([]float64, 0, len(records))
	for _, r := range records {
		if r.valid() {
			prices = append(prices, float64(r.Price))
		}
	}
	if len(prices) == 0 {
		return nil
	}

	m := mean(prices)
	sd := popStdDev(prices)
	cv := 0.0
	if m > 0 {
		cv = sd / m
	}

	history := History(records)
	volumes := make([]float64, len(history))
	for i, h := range history {
		volumes[i] = float64(h.Volume)
	}
	demand := 100.0
	if vm := mean(volumes); vm > 0 {
		demand = 100 - clamp(popStdDev(volumes)/vm*100, 0, 100)
	}

	return &VolatilityMetrics{
		Score:             clamp(cv*100, 0, 100),
		PriceVariance:     sd * sd,
		SupplyConsistency: supplyConsistency(history),
		DemandStability:   demand,
		Trend:             historyTrend(history),
	}
}

// supplyConsistency is the share of days between the first and last trade
// that saw any trade at all.
func supplyConsistency(history []HistoryPoint) float64 {
	if len(history) == 0 {
		return 0
	}
	first, err1 := time.Parse(dateLayout, history[0].Date)
	last, err2 := time.Parse(dateLayout, history[len(history)-1].Date)
	if err1 != nil || err2 != nil {
		return 0
	}
	span := int(last.Sub(first).Hours()/24) + 1
	return clamp(float64(len(history))/float64(span)*100, 0, 100)
}

func historyTrend(history []HistoryPoint) Trend {
	if len(history) < 2 {
		return TrendStable
	}
	first := history[0].AvgPrice
	last := history[len(history)-1].AvgPrice
	switch {
	case last > first*1.05:
		return TrendRising
	case last < first*0.95:
		return TrendFalling
	default:
		return TrendStable
	}
}

// DistinctSellers counts the distinct seller handles among valid records.
func DistinctSellers(records []TradeRecord) int {
	sellers := make(map[string]struct{})
	for _, r := range records {
		if r.valid() && r.Seller != "" {
			sellers[r.Seller] = struct{}{}
		}
	}
	return len(sellers)
}
