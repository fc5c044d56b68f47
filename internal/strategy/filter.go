// Package strategy turns the unified lap table into the views shown on the dashboard. Every
// operation is a pure read over a laps.View: a selection is applied with Filter and the result is
// handed to one or more aggregations.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
)

var (
	// ErrEmptySelection reports that the view handed to an aggregation holds no laps. It is a
	// normal outcome of a narrow selection and is rendered as a notice.
	ErrEmptySelection = errors.New("no laps match the selection")
	// ErrFeatureUnavailable reports that an optional column the aggregation depends on is missing
	// from the whole dataset.
	ErrFeatureUnavailable = errors.New("feature unavailable")
)

func featureUnavailable(f laps.Feature) error {
	return fmt.Errorf("%w: %s", ErrFeatureUnavailable, f)
}

// Filter returns the laps of the view matching the selection. Criteria are AND-combined; values
// within the driver and compound sets are OR-combined. Filtering a filtered view with the same
// selection returns the same laps.
func Filter(v laps.View, sel domain.Selection) laps.View {
	drivers := make(map[string]bool, len(sel.Drivers))
	for _, d := range sel.Drivers {
		drivers[strings.ToUpper(strings.TrimSpace(d))] = true
	}
	compounds := make(map[domain.TireCompound]bool, len(sel.Compounds))
	for _, c := range sel.Compounds {
		compounds[c] = true
	}

	return v.Where(func(r domain.LapRecord) bool {
		if sel.Season != 0 && r.Season != sel.Season {
			return false
		}
		if sel.GrandPrix != "" && !strings.EqualFold(r.GrandPrix, sel.GrandPrix) {
			return false
		}
		if len(drivers) > 0 && !drivers[strings.ToUpper(r.Driver)] {
			return false
		}
		if len(compounds) > 0 && !compounds[r.Compound] {
			return false
		}
		if sel.GreenFlagOnly && r.TrackStatus.IsNeutralized() {
			return false
		}
		return true
	})
}

// SelectionOptions lists the distinct values available to each selection control.
type SelectionOptions struct {
	Seasons   []int
	GrandPrix []string
	Drivers   []string
	Compounds []domain.TireCompound
}

// Options collects the distinct seasons, Grand Prix, drivers and compounds present in the view.
// Compounds keep their softest-to-wettest order; everything else is sorted.
func Options(v laps.View) SelectionOptions {
	seasons := make(map[int]bool)
	gps := make(map[string]bool)
	drivers := make(map[string]bool)
	compounds := make(map[domain.TireCompound]bool)
	v.Each(func(r domain.LapRecord) {
		seasons[r.Season] = true
		gps[r.GrandPrix] = true
		drivers[r.Driver] = true
		compounds[r.Compound] = true
	})

	var o SelectionOptions
	for s := range seasons {
		o.Seasons = append(o.Seasons, s)
	}
	sort.Ints(o.Seasons)
	o.GrandPrix = sortedKeys(gps)
	o.Drivers = sortedKeys(drivers)
	for _, c := range domain.TireCompounds {
		if compounds[c] {
			o.Compounds = append(o.Compounds, c)
		}
	}
	return o
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
