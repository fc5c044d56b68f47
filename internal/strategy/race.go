package strategy

import (
	"sort"
	"strings"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
)

// Gap is a driver's deficit on one lap to the fastest lap time set on that lap number.
type Gap struct {
	Driver       string
	DriverSeason string
	LapNumber    int
	LapTime      float64
	Gap          float64 // Gap is zero for the leader of the lap
}

// GapToLeader computes, for every lap of the view, the difference to the fastest lap time among
// all drivers in the view on the same lap number. Results are ordered by lap number and keep view
// order within a lap.
func GapToLeader(v laps.View) ([]Gap, error) {
	if v.Len() == 0 {
		return []Gap{}, ErrEmptySelection
	}

	leader := make(map[int]float64)
	v.Each(func(r domain.LapRecord) {
		if best, ok := leader[r.LapNumber]; !ok || r.LapTime < best {
			leader[r.LapNumber] = r.LapTime
		}
	})

	gaps := make([]Gap, 0, v.Len())
	v.Each(func(r domain.LapRecord) {
		gaps = append(gaps, Gap{
			Driver:       r.Driver,
			DriverSeason: r.DriverSeason,
			LapNumber:    r.LapNumber,
			LapTime:      r.LapTime,
			Gap:          r.LapTime - leader[r.LapNumber],
		})
	})
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].LapNumber < gaps[j].LapNumber
	})
	return gaps, nil
}

// Undercut is the lap time gained across a pit stop.
type Undercut struct {
	Driver    string
	GrandPrix string // GrandPrix is the season-qualified event label
	PitLap    int
	Before    float64 // Before is the lap time on the lap preceding the pit lap
	After     float64 // After is the lap time on the lap following the pit lap
	TimeSaved float64 // TimeSaved is Before minus After
}

type raceKey struct {
	driver    string
	grandPrix string
	season    int
}

// UndercutEffect measures every pit event of the given drivers (every driver when empty) as the
// lap time one lap before the pit lap minus the lap time one lap after it. Neighbouring laps are
// found by lap number within the same race; an event missing either neighbour is omitted.
func UndercutEffect(v laps.View, drivers []string) ([]Undercut, error) {
	if v.Len() == 0 {
		return []Undercut{}, ErrEmptySelection
	}

	wanted := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		wanted[strings.ToUpper(strings.TrimSpace(d))] = true
	}

	times := make(map[raceKey]map[int]float64)
	var pits []domain.LapRecord
	v.Each(func(r domain.LapRecord) {
		if len(wanted) > 0 && !wanted[strings.ToUpper(r.Driver)] {
			return
		}
		k := raceKey{r.Driver, r.GrandPrix, r.Season}
		if times[k] == nil {
			times[k] = make(map[int]float64)
		}
		times[k][r.LapNumber] = r.LapTime
		if r.PitLap != nil {
			pits = append(pits, r)
		}
	})

	type event struct {
		race raceKey
		lap  int
	}
	seen := make(map[event]bool)
	out := make([]Undercut, 0, len(pits))
	for _, r := range pits {
		k := raceKey{r.Driver, r.GrandPrix, r.Season}
		e := event{k, *r.PitLap}
		if seen[e] {
			continue
		}
		seen[e] = true

		before, okBefore := times[k][e.lap-1]
		after, okAfter := times[k][e.lap+1]
		if !okBefore || !okAfter {
			continue
		}
		out = append(out, Undercut{
			Driver:    r.Driver,
			GrandPrix: r.GrandPrixSeason,
			PitLap:    e.lap,
			Before:    before,
			After:     after,
			TimeSaved: before - after,
		})
	}
	return out, nil
}

// PitStop is a single pit-in lap.
type PitStop struct {
	Driver    string
	GrandPrix string // GrandPrix is the season-qualified event label
	Lap       int
	Compound  domain.TireCompound
	Duration  *float64 // Duration is nil when the stop was not timed
}

// PitStops lists every pit-in lap of the view in view order.
func PitStops(v laps.View) ([]PitStop, error) {
	if !v.Has(laps.FeaturePitDuration) {
		return []PitStop{}, featureUnavailable(laps.FeaturePitDuration)
	}
	if v.Len() == 0 {
		return []PitStop{}, ErrEmptySelection
	}

	out := make([]PitStop, 0)
	v.Each(func(r domain.LapRecord) {
		if r.PitLap == nil {
			return
		}
		out = append(out, PitStop{
			Driver:    r.Driver,
			GrandPrix: r.GrandPrixSeason,
			Lap:       *r.PitLap,
			Compound:  r.Compound,
			Duration:  r.PitDuration,
		})
	})
	return out, nil
}
