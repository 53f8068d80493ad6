package pricing

import (
	"math"
	"sort"
)

type HealthTrend string

const (
	HealthImproving     HealthTrend = "improving"
	HealthDeteriorating HealthTrend = "deteriorating"
	HealthStable        HealthTrend = "stable"
)

// MarketHealth is a composite index of liquidity, price stability and
// seller reliability. MSI runs from 0 to 100.
type MarketHealth struct {
	MSI         int         `json:"msi"`
	Label       string      `json:"health"`
	Liquidity   float64     `json:"liquidityScore"`
	Stability   float64     `json:"stabilityScore"`
	Reliability float64     `json:"reliabilityScore"`
	Trend       HealthTrend `json:"trend"`
}

// Health scores the market formed by records. It returns nil when there are
// no valid records.
func Health(records []TradeRecord) *MarketHealth {
	valid := make([]TradeRecord, 0, len(records))
	for _, r := range records {
		if r.valid() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	n := float64(len(valid))

	prices := make([]float64, len(valid))
	for i, r := range valid {
		prices[i] = float64(r.Price)
	}
	m := mean(prices)
	cv := 0.0
	if m > 0 {
		cv = popStdDev(prices) / m
	}

	liquidity := math.Min(n/20*100, 100)
	stability := math.Max(0, 100-cv*100)
	diversity := math.Min(float64(DistinctSellers(valid))/5*100, 100)
	reliability := diversity * math.Min(n, 10) / 10

	msi := liquidity*0.4 + stability*0.4 + reliability*0.2
	return &MarketHealth{
		MSI:         int(math.Round(msi)),
		Label:       healthLabel(msi),
		Liquidity:   liquidity,
		Stability:   stability,
		Reliability: reliability,
		Trend:       healthTrend(valid),
	}
}

func healthLabel(msi float64) string {
	switch {
	case msi >= 80:
		return "Thriving"
	case msi >= 60:
		return "Healthy"
	case msi >= 40:
		return "Stable"
	case msi >= 20:
		return "Poor"
	default:
		return "Critical"
	}
}

// healthTrend compares the mean price of the older half of the records with
// the newer half. Six records are needed before a direction is reported.
func healthTrend(records []TradeRecord) HealthTrend {
	if len(records) < 6 {
		return HealthStable
	}
	sorted := make([]TradeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	mid := len(sorted) / 2
	avg := func(rs []TradeRecord) float64 {
		sum := 0.0
		for _, r := range rs {
			sum += float64(r.Price)
		}
		return sum / float64(len(rs))
	}
	older, newer := avg(sorted[:mid]), avg(sorted[mid:])
	switch {
	case newer > older*1.05:
		return HealthImproving
	case newer < older*0.95:
		return HealthDeteriorating
	default:
		return HealthStable
	}
}
