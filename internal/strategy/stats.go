package strategy

import "math"

// mean returns the arithmetic mean of xs; false when xs is empty.
func mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}

// stdDev returns the sample standard deviation of xs; false with fewer than two values. Identical
// values yield exactly zero rather than a rounding residue.
func stdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if lo == hi {
		return 0, true
	}
	m, _ := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1)), true
}

func ptr[T any](v T) *T {
	return &v
}
