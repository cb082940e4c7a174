package pbpk

import (
	"math"
	"sort"
)

// Percentile returns the nearest-rank percentile of values: the data is
// sorted ascending and the element at index ceil(p/100*n)-1 (clamped to 0)
// is returned. This is the inclusive nearest-rank definition, not an
// interpolated quantile. Returns 0 for an empty input.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
