package strategy

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
)

// ErrInvalidProjection is returned for a negative temperature tolerance or stint length.
var ErrInvalidProjection = errors.New("invalid stint projection parameters")

// ProjectionPoint is the expected lap time at a given tyre age.
type ProjectionPoint struct {
	TyreLife    int
	MeanLapTime float64
	Laps        int // Laps is the number of laps averaged
}

// Projection describes a hypothetical stint.
type Projection struct {
	Compound       domain.TireCompound
	Temperature    float64 // Temperature is the expected track temperature in °C
	Tolerance      float64 // Tolerance is the accepted deviation from Temperature in °C
	MaxStintLength int
}

// StintProjection simulates a stint on the given compound at a track temperature by averaging
// lap times per tyre age over laps run within the tolerance window. Only tyre ages up to the
// maximum stint length are projected. An empty projection is a valid result.
func StintProjection(v laps.View, p Projection) ([]ProjectionPoint, error) {
	if p.Tolerance < 0 || p.MaxStintLength < 0 || math.IsNaN(p.Temperature) {
		return []ProjectionPoint{}, ErrInvalidProjection
	}
	if !v.Has(laps.FeatureTrackTemp) {
		return []ProjectionPoint{}, featureUnavailable(laps.FeatureTrackTemp)
	}
	if v.Len() == 0 {
		return []ProjectionPoint{}, ErrEmptySelection
	}

	byAge := make(map[int][]float64)
	v.Each(func(r domain.LapRecord) {
		if r.Compound != p.Compound || r.TrackTemp == nil || r.TyreLife > p.MaxStintLength {
			return
		}
		if math.Abs(*r.TrackTemp-p.Temperature) > p.Tolerance {
			return
		}
		byAge[r.TyreLife] = append(byAge[r.TyreLife], r.LapTime)
	})

	out := make([]ProjectionPoint, 0, len(byAge))
	for age, times := range byAge {
		m, _ := mean(times)
		out = append(out, ProjectionPoint{TyreLife: age, MeanLapTime: m, Laps: len(times)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TyreLife < out[j].TyreLife })
	return out, nil
}

// DegradationPoint is one lap of a degradation curve.
type DegradationPoint struct {
	LapNumber int
	TyreLife  int
	LapTime   float64
}

// Degradation is a driver's lap time against tyre age on a single compound.
type Degradation struct {
	Driver      string
	Compound    domain.TireCompound
	Points      []DegradationPoint
	AvgLap      float64
	StintLength int // StintLength is the highest tyre age reached
}

// DegradationCurve returns the laps a driver ran on a compound ordered by lap number, with the
// average lap time and the longest tyre age reached.
func DegradationCurve(v laps.View, driver string, compound domain.TireCompound) (Degradation, error) {
	d := Degradation{Driver: driver, Compound: compound, Points: []DegradationPoint{}}

	times := make([]float64, 0)
	v.Each(func(r domain.LapRecord) {
		if !strings.EqualFold(r.Driver, driver) || r.Compound != compound {
			return
		}
		d.Points = append(d.Points, DegradationPoint{LapNumber: r.LapNumber, TyreLife: r.TyreLife, LapTime: r.LapTime})
		times = append(times, r.LapTime)
		if r.TyreLife > d.StintLength {
			d.StintLength = r.TyreLife
		}
	})
	if len(d.Points) == 0 {
		return d, ErrEmptySelection
	}
	sort.SliceStable(d.Points, func(i, j int) bool { return d.Points[i].LapNumber < d.Points[j].LapNumber })
	d.AvgLap, _ = mean(times)
	return d, nil
}
