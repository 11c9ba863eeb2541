package analytics

import (
	"math"
	"sort"
)

// PercentileOf returns the percentile rank of v within population: the
// percentage of values less than or equal to v. Monotonic in v; NaN for
// an empty population.
func PercentileOf(population []float64, v float64) float64 {
	if len(population) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), population...)
	sort.Float64s(sorted)

	// First index with sorted[i] > v.
	n := sort.SearchFloat64s(sorted, math.Nextafter(v, math.Inf(1)))
	return 100 * float64(n) / float64(len(sorted))
}

// PercentileRank maps every key to the percentile of its value within
// the whole population.
func PercentileRank(values map[string]float64) map[string]float64 {
	population := make([]float64, 0, len(values))
	for _, v := range values {
		population = append(population, v)
	}

	ranks := make(map[string]float64, len(values))
	for k, v := range values {
		ranks[k] = PercentileOf(population, v)
	}
	return ranks
}
