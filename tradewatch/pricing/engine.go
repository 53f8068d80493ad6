// Package pricing turns per-item trade records into outlier resistant,
// quality and material normalized, time-decayed price statistics.
package pricing

import (
	"math"
	"time"
)

// Config holds the tunables of the statistics engine.
type Config struct {
	// HalfLife is the age at which an observation keeps half its weight.
	HalfLife time.Duration
	// IQRMultiplier sets the Tukey fences.
	IQRMultiplier float64
	// MinIQRSample is the smallest sample the outlier filter runs on.
	MinIQRSample int
	// BaseQuality is the quality every price is normalized onto.
	BaseQuality float64
}

func DefaultConfig() Config {
	return Config{
		HalfLife:      30 * 24 * time.Hour,
		IQRMultiplier: 1.5,
		MinIQRSample:  4,
		BaseQuality:   50,
	}
}

// Statistics summarises the cleaned, normalized sample of one item.
// A zero value means no data.
type Statistics struct {
	SampleSize      int     `json:"sampleSize"`
	OutliersRemoved int     `json:"outliersRemoved"`
	Mean            float64 `json:"mean"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	P25             float64 `json:"p25"`
	P75             float64 `json:"p75"`
	Volatility      float64 `json:"volatility"`
	FairPrice       float64 `json:"fairPrice"`
}

// Engine computes Statistics. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg    Config
	table  Table
	lambda float64
	now    func() time.Time
}

func NewEngine(cfg Config, table Table) *Engine {
	lambda := 0.0
	if ms := cfg.HalfLife.Milliseconds(); ms > 0 {
		lambda = math.Ln2 / float64(ms)
	}
	return &Engine{
		cfg:    cfg,
		table:  table,
		lambda: lambda,
		now:    time.Now,
	}
}

// WithClock returns a copy of e that reads the current time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

func (e *Engine) Table() Table {
	return e.table
}

// Normalize maps a record's unit price onto the base quality and baseline
// material scale.
func (e *Engine) Normalize(r TradeRecord) float64 {
	q := r.Quality
	if q <= 0 {
		q = e.cfg.BaseQuality
	}
	ratio := math.Max(q, 0.1) / e.cfg.BaseQuality
	exp := e.table.Exponent(r.ItemID)
	return float64(r.Price) / math.Pow(ratio, exp) / e.table.Multiplier(r.Material)
}

// Weight is the exponential decay weight of an observation of the given age.
// Future timestamps count as fresh.
func (e *Engine) Weight(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return math.Exp(-e.lambda * float64(age.Milliseconds()))
}

// Analyze computes statistics as of the engine clock.
func (e *Engine) Analyze(records []TradeRecord) Statistics {
	return e.AnalyzeAt(records, e.now())
}

// AnalyzeAt computes statistics for records of a single item as of now.
// Records with a non-positive price are ignored.
func (e *Engine) AnalyzeAt(records []TradeRecord, now time.Time) Statistics {
	obs := make([]observation, 0, len(records))
	for _, r := range records {
		if !r.valid() {
			continue
		}
		obs = append(obs, observation{
			value:  e.Normalize(r),
			weight: e.Weight(now.Sub(r.Timestamp)),
		})
	}
	if len(obs) == 0 {
		return Statistics{}
	}

	sortObservations(obs)
	kept := obs
	if len(obs) >= e.cfg.MinIQRSample {
		kept = filterOutliers(obs, e.cfg.IQRMultiplier)
	}

	vals := values(kept)
	return Statistics{
		SampleSize:      len(obs),
		OutliersRemoved: len(obs) - len(kept),
		Mean:            mean(vals),
		Min:             vals[0],
		Max:             vals[len(vals)-1],
		P25:             percentile(vals, 0.25),
		P75:             percentile(vals, 0.75),
		Volatility:      popStdDev(vals),
		FairPrice:       weightedMedian(kept),
	}
}

// Project reverses normalization: the price of the fair value at a target
// quality and material for itemID.
func (e *Engine) Project(fair float64, itemID string, targetQL float64, material string) float64 {
	if targetQL <= 0 {
		targetQL = e.cfg.BaseQuality
	}
	exp := e.table.Exponent(itemID)
	return fair * math.Pow(targetQL/e.cfg.BaseQuality, exp) * e.table.Multiplier(material)
}

// Confidence rates how far the statistics can be trusted, from 0.1 to 0.95.
func Confidence(s Statistics) float64 {
	if s.SampleSize == 0 {
		return 0.1
	}
	c := 0.95
	if s.Volatility > s.Mean*0.5 {
		c -= 0.2
	}
	if s.SampleSize < 10 {
		c -= 0.3
	}
	if float64(s.OutliersRemoved) > float64(s.SampleSize)*0.2 {
		c -= 0.1
	}
	return math.Max(c, 0.1)
}
