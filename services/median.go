package services

import "sort"

// Median of the positive values. Zero and negative amounts are excluded
// first; an empty input yields 0.
func Median(values []int64) float64 {
	filtered := make([]int64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return 0
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i] < filtered[j] })
	mid := len(filtered) / 2
	if len(filtered)%2 == 0 {
		return float64(filtered[mid-1]+filtered[mid]) / 2
	}
	return float64(filtered[mid])
}
