package strategy

import (
	"github.com/bcdxn/racingline/internal/laps"
)

// SectorSummary holds a driver's mean and best time for each of the three sectors; a sector is
// nil when none of the driver's laps timed it.
type SectorSummary struct {
	Driver string
	Mean   [3]*float64
	Best   [3]*float64
}

// Theoretical returns the sum of the best sectors, the driver's ideal lap; false unless all three
// sectors were timed.
func (s SectorSummary) Theoretical() (float64, bool) {
	total := 0.0
	for _, b := range s.Best {
		if b == nil {
			return 0, false
		}
		total += *b
	}
	return total, true
}

// SectorSummaries computes a SectorSummary for every driver in the view.
func SectorSummaries(v laps.View) (map[string]SectorSummary, error) {
	if !v.Has(laps.FeatureSectorTimes) {
		return map[string]SectorSummary{}, featureUnavailable(laps.FeatureSectorTimes)
	}
	if v.Len() == 0 {
		return map[string]SectorSummary{}, ErrEmptySelection
	}

	groups := byDriver(v)
	out := make(map[string]SectorSummary, len(groups))
	for driver, g := range groups {
		s := SectorSummary{Driver: driver}
		for i := range s.Mean {
			times := make([]float64, 0, len(g.records))
			for _, r := range g.records {
				if r.Sectors[i] != nil {
					times = append(times, *r.Sectors[i])
				}
			}
			if m, ok := mean(times); ok {
				s.Mean[i] = ptr(m)
				s.Best[i] = ptr(minOf(times))
			}
		}
		out[driver] = s
	}
	return out, nil
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
