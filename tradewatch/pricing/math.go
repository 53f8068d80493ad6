package pricing

import (
	"math"
	"sort"
)

type observation struct {
	value  float64
	weight float64
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// popStdDev is the population standard deviation.
func popStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}

// percentile interpolates linearly between closest ranks of an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := float64(len(sorted)-1) * p
	base := int(math.Floor(pos))
	rest := pos - float64(base)
	if base+1 < len(sorted) {
		return sorted[base] + rest*(sorted[base+1]-sorted[base])
	}
	return sorted[base]
}

func values(obs []observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.value
	}
	return out
}

func sortObservations(obs []observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].value < obs[j].value
	})
}

// filterOutliers drops observations outside the Tukey fences. obs must be
// sorted ascending.
func filterOutliers(obs []observation, multiplier float64) []observation {
	vals := values(obs)
	q1 := percentile(vals, 0.25)
	q3 := percentile(vals, 0.75)
	iqr := q3 - q1
	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	kept := make([]observation, 0, len(obs))
	for _, o := range obs {
		if o.value >= lower && o.value <= upper {
			kept = append(kept, o)
		}
	}
	return kept
}

// weightedMedian walks obs (sorted ascending) until the cumulative weight
// reaches half the total and returns that value.
func weightedMedian(obs []observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	total := 0.0
	for _, o := range obs {
		total += o.weight
	}
	// Every weight underflowed to zero; fall back to equal influence.
	if total == 0 {
		return obs[(len(obs)-1)/2].value
	}

	half := total / 2
	cum := 0.0
	for _, o := range obs {
		cum += o.weight
		if cum >= half {
			return o.value
		}
	}
	return obs[len(obs)-1].value
}
