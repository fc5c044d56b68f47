package strategy

import (
	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
)

// DriverSummary aggregates every lap a driver has in a view. Optional statistics are nil when the
// laps do not define them.
type DriverSummary struct {
	Driver      string
	Team        string
	TeamColor   string
	Laps        int
	AvgLap      float64
	FastestLap  float64
	PitCount    int           // PitCount is the number of pit-in laps
	BestStint   *StintSummary // BestStint is the stint with the lowest mean lap time
	Consistency *float64      // Consistency is the sample standard deviation of lap times
	WetDryDelta *float64      // WetDryDelta is mean wet lap time minus mean dry lap time
}

// StintSummary is the mean pace of one stint.
type StintSummary struct {
	GrandPrix string // GrandPrix is the season-qualified event label
	Stint     int
	Laps      int
	AvgLap    float64
}

type stintKey struct {
	grandPrix string
	stint     int
}

// driverLaps gathers the laps of one driver in view order.
type driverLaps struct {
	records []domain.LapRecord
}

func (d driverLaps) times(keep func(domain.LapRecord) bool) []float64 {
	out := make([]float64, 0, len(d.records))
	for _, r := range d.records {
		if keep == nil || keep(r) {
			out = append(out, r.LapTime)
		}
	}
	return out
}

func isWet(r domain.LapRecord) bool { return r.IsWetLap }
func isDry(r domain.LapRecord) bool { return !r.IsWetLap }

// byDriver groups the view by driver code.
func byDriver(v laps.View) map[string]*driverLaps {
	groups := make(map[string]*driverLaps)
	v.Each(func(r domain.LapRecord) {
		g, ok := groups[r.Driver]
		if !ok {
			g = &driverLaps{}
			groups[r.Driver] = g
		}
		g.records = append(g.records, r)
	})
	return groups
}

// DriverSummaries computes a DriverSummary for every driver in the view, keyed by driver code.
func DriverSummaries(v laps.View) (map[string]DriverSummary, error) {
	if v.Len() == 0 {
		return map[string]DriverSummary{}, ErrEmptySelection
	}

	groups := byDriver(v)
	out := make(map[string]DriverSummary, len(groups))
	for driver, g := range groups {
		last := g.records[len(g.records)-1]
		s := DriverSummary{
			Driver:     driver,
			Team:       last.Team,
			TeamColor:  last.TeamColor,
			Laps:       len(g.records),
			FastestLap: g.records[0].LapTime,
		}

		all := g.times(nil)
		s.AvgLap, _ = mean(all)
		for _, r := range g.records {
			if r.LapTime < s.FastestLap {
				s.FastestLap = r.LapTime
			}
			if r.PitLap != nil {
				s.PitCount++
			}
		}
		if sd, ok := stdDev(all); ok {
			s.Consistency = ptr(sd)
		}
		wet, okWet := mean(g.times(isWet))
		dry, okDry := mean(g.times(isDry))
		if okWet && okDry {
			s.WetDryDelta = ptr(wet - dry)
		}
		s.BestStint = bestStint(g.records)

		out[driver] = s
	}
	return out, nil
}

// bestStint returns the stint with the lowest mean lap time; ties go to the earlier stint.
func bestStint(records []domain.LapRecord) *StintSummary {
	times := make(map[stintKey][]float64)
	order := make([]stintKey, 0)
	for _, r := range records {
		k := stintKey{r.GrandPrixSeason, r.Stint}
		if _, ok := times[k]; !ok {
			order = append(order, k)
		}
		times[k] = append(times[k], r.LapTime)
	}

	var best *StintSummary
	for _, k := range order {
		m, ok := mean(times[k])
		if !ok {
			continue
		}
		if best == nil || m < best.AvgLap {
			best = &StintSummary{GrandPrix: k.grandPrix, Stint: k.stint, Laps: len(times[k]), AvgLap: m}
		}
	}
	return best
}

// WeatherImpactIndex scores how much slower each driver is in the wet relative to their own lap
// time spread: (dry mean - wet mean) / standard deviation. Drivers lacking either wet or dry laps,
// or whose lap times do not vary, are left out.
func WeatherImpactIndex(v laps.View) (map[string]float64, error) {
	if v.Len() == 0 {
		return map[string]float64{}, ErrEmptySelection
	}

	groups := byDriver(v)
	out := make(map[string]float64)
	for driver, g := range groups {
		wet, okWet := mean(g.times(isWet))
		dry, okDry := mean(g.times(isDry))
		sd, okSD := stdDev(g.times(nil))
		if !okWet || !okDry || !okSD || sd == 0 {
			continue
		}
		out[driver] = (dry - wet) / sd
	}
	return out, nil
}
