package stdev

import "math"

// calculateMean returns the arithmetic mean of values
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdev returns the sample standard deviation (n-1 denominator) using
// the two-pass algorithm. It reports false for fewer than two values.
func SampleStdev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}

	mean := calculateMean(values)
	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1)), true
}
