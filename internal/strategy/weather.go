package strategy

import (
	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
)

// TempBand is a half-open track temperature range (Low, High] in °C.
type TempBand struct {
	Low   float64
	High  float64
	Label string
}

// Contains reports whether temp lies in the band. A temperature on a boundary belongs to the band
// below it.
func (b TempBand) Contains(temp float64) bool {
	return temp > b.Low && temp <= b.High
}

// TempBands are the fixed, non-overlapping track temperature bands.
var TempBands = []TempBand{
	{Low: 0, High: 20, Label: "0-20°C"},
	{Low: 20, High: 25, Label: "20-25°C"},
	{Low: 25, High: 30, Label: "25-30°C"},
	{Low: 30, High: 35, Label: "30-35°C"},
	{Low: 35, High: 100, Label: "35-100°C"},
}

// BandOf returns the band containing temp; false outside every band.
func BandOf(temp float64) (TempBand, bool) {
	for _, b := range TempBands {
		if b.Contains(temp) {
			return b, true
		}
	}
	return TempBand{}, false
}

// SynergyMatrix holds the mean lap time per compound and temperature band label. Cells without
// laps are absent.
type SynergyMatrix map[domain.TireCompound]map[string]float64

// Mean returns the cell for a compound and band.
func (m SynergyMatrix) Mean(c domain.TireCompound, band string) (float64, bool) {
	v, ok := m[c][band]
	return v, ok
}

// TyreWeatherSynergy averages lap times per compound and track temperature band. Laps without a
// track temperature, or outside every band, are excluded before banding.
func TyreWeatherSynergy(v laps.View) (SynergyMatrix, error) {
	if !v.Has(laps.FeatureTrackTemp) {
		return SynergyMatrix{}, featureUnavailable(laps.FeatureTrackTemp)
	}
	if v.Len() == 0 {
		return SynergyMatrix{}, ErrEmptySelection
	}

	cells := make(map[domain.TireCompound]map[string][]float64)
	v.Each(func(r domain.LapRecord) {
		if r.TrackTemp == nil {
			return
		}
		b, ok := BandOf(*r.TrackTemp)
		if !ok {
			return
		}
		if cells[r.Compound] == nil {
			cells[r.Compound] = make(map[string][]float64)
		}
		cells[r.Compound][b.Label] = append(cells[r.Compound][b.Label], r.LapTime)
	})

	out := make(SynergyMatrix, len(cells))
	for c, bands := range cells {
		out[c] = make(map[string]float64, len(bands))
		for label, times := range bands {
			out[c][label], _ = mean(times)
		}
	}
	return out, nil
}
