package render

// Histogram counts values into bins equal-width bins spanning [lo, hi].
// Values outside the range are dropped; hi itself lands in the last bin.
func Histogram(values []float64, lo, hi float64, bins int) []float64 {
	if bins <= 0 || hi <= lo {
		return nil
	}
	counts := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range values {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return counts
}

// binCenters returns the midpoint of every bin produced by Histogram.
func binCenters(lo, hi float64, bins int) []float64 {
	centers := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for i := range centers {
		centers[i] = lo + width*(float64(i)+0.5)
	}
	return centers
}
