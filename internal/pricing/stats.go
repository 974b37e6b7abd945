package pricing

import (
	"math"
	"sort"
)

const (
	highConfidenceSamples   = 10
	mediumConfidenceSamples = 5

	rangeLowFactor  = 0.8
	rangeHighFactor = 1.2
)

// ConfidenceFor returns the confidence tier for a number of corroborating samples.
func ConfidenceFor(samples int) Confidence {
	switch {
	case samples >= highConfidenceSamples:
		return ConfidenceHigh
	case samples >= mediumConfidenceSamples:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// priceStats summarises a set of positive prices.
type priceStats struct {
	count  int
	mean   float64
	median float64
	min    float64
	max    float64
}

// computeStats returns statistics for prices, which must be non-empty.
// The median is the element at index n/2 of the sorted prices. For even n the
// two middle values are not averaged.
func computeStats(prices []float64) priceStats {
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	var sum float64
	for _, p := range sorted {
		sum += p
	}

	return priceStats{
		count:  len(sorted),
		mean:   sum / float64(len(sorted)),
		median: sorted[len(sorted)/2],
		min:    sorted[0],
		max:    sorted[len(sorted)-1],
	}
}

// roundPrice rounds half up and clamps at zero.
func roundPrice(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int(math.Floor(v + 0.5))
}
