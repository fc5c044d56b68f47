package laps

import (
	"github.com/bcdxn/racingline/internal/domain"
)

// Feature is an optional column that some datasets omit entirely. Views depending on a feature
// degrade on their own when it is missing.
type Feature uint8

const (
	FeatureSectorTimes Feature = 1 << iota
	FeaturePitDuration
	FeatureTrackTemp
)

func (f Feature) String() string {
	switch f {
	case FeatureSectorTimes:
		return "sector times"
	case FeaturePitDuration:
		return "pit duration"
	case FeatureTrackTemp:
		return "track temperature"
	default:
		return "unknown feature"
	}
}

// Table is the unified, immutable lap table built by Load. It is safe for concurrent use by any
// number of readers.
type Table struct {
	laps     []domain.LapRecord
	features Feature
}

// Len returns the number of laps in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.laps)
}

// Has reports whether any lap in the table carries the given optional feature.
func (t *Table) Has(f Feature) bool {
	return t != nil && t.features&f != 0
}

// All returns a view over every lap in the table.
func (t *Table) All() View {
	return View{table: t}
}

// newTable concatenates the per-source records in order, drops records whose natural key was
// already seen and computes the derived columns. It returns the number of duplicates dropped.
func newTable(parts [][]domain.LapRecord) (*Table, int) {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	t := &Table{laps: make([]domain.LapRecord, 0, n)}
	seen := make(map[domain.LapKey]struct{}, n)
	dupes := 0
	for _, p := range parts {
		for _, r := range p {
			k := r.Key()
			if _, ok := seen[k]; ok {
				dupes++
				continue
			}
			seen[k] = struct{}{}
			t.laps = append(t.laps, r)
		}
	}

	derive(t.laps)
	for _, r := range t.laps {
		t.features |= featuresOf(r)
	}
	return t, dupes
}

func featuresOf(r domain.LapRecord) Feature {
	var f Feature
	if r.Sectors[0] != nil || r.Sectors[1] != nil || r.Sectors[2] != nil {
		f |= FeatureSectorTimes
	}
	if r.PitDuration != nil {
		f |= FeaturePitDuration
	}
	if r.TrackTemp != nil {
		f |= FeatureTrackTemp
	}
	return f
}

type driverSeason struct {
	driver string
	season int
}

// derive resolves each driver's team and fills in the derived display columns. The team of a
// (driver, season) pair is taken from its most recent lap with a known team: the latest Grand
// Prix in table order, then the highest lap number.
func derive(laps []domain.LapRecord) {
	gpOrder := make(map[string]int)
	for _, r := range laps {
		k := domain.GrandPrixSeasonLabel(r.GrandPrix, r.Season)
		if _, ok := gpOrder[k]; !ok {
			gpOrder[k] = len(gpOrder)
		}
	}

	type latest struct {
		team  string
		order int
		lap   int
	}
	teams := make(map[driverSeason]latest)
	for _, r := range laps {
		if r.Team == "" || r.Team == domain.TeamOther {
			continue
		}
		k := driverSeason{r.Driver, r.Season}
		order := gpOrder[domain.GrandPrixSeasonLabel(r.GrandPrix, r.Season)]
		cur, ok := teams[k]
		if !ok || order > cur.order || (order == cur.order && r.LapNumber >= cur.lap) {
			teams[k] = latest{team: r.Team, order: order, lap: r.LapNumber}
		}
	}

	for i := range laps {
		r := &laps[i]
		r.Team = domain.TeamOther
		if l, ok := teams[driverSeason{r.Driver, r.Season}]; ok {
			r.Team = l.team
		}
		r.TeamColor = domain.TeamColor(r.Team)
		r.DriverColor = r.TeamColor
		r.DriverSeason = domain.DriverSeasonLabel(r.Driver, r.Season)
		r.GrandPrixSeason = domain.GrandPrixSeasonLabel(r.GrandPrix, r.Season)
	}
}

/* Views
------------------------------------------------------------------------------------------------- */

// View is a read-only subset of a Table, held as indices into the table's laps. Records handed out
// by a view are copies; the table itself can never be modified through it.
type View struct {
	table *Table
	idx   []int // nil selects every lap of the table
}

// Len returns the number of laps in the view.
func (v View) Len() int {
	if v.idx == nil {
		return v.table.Len()
	}
	return len(v.idx)
}

// At returns a copy of the i-th lap of the view, optional measurements included.
func (v View) At(i int) domain.LapRecord {
	if v.idx == nil {
		return v.table.laps[i].Clone()
	}
	return v.table.laps[v.idx[i]].Clone()
}

// Each calls fn for every lap of the view in table order.
func (v View) Each(fn func(domain.LapRecord)) {
	for i := 0; i < v.Len(); i++ {
		fn(v.At(i))
	}
}

// Where returns the subset of the view for which keep returns true.
func (v View) Where(keep func(domain.LapRecord) bool) View {
	idx := make([]int, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		j := i
		if v.idx != nil {
			j = v.idx[i]
		}
		if keep(v.table.laps[j].Clone()) {
			idx = append(idx, j)
		}
	}
	return View{table: v.table, idx: idx}
}

// Has reports whether the dataset behind the view carries the given optional feature. It answers
// for the whole table so that an empty or narrow selection is not mistaken for a missing column.
func (v View) Has(f Feature) bool {
	return v.table.Has(f)
}

// Records returns a copy of the laps in the view.
func (v View) Records() []domain.LapRecord {
	out := make([]domain.LapRecord, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}
