package domain

// LapRecord is a single lap completed by a driver during a race session. Optional measurements
// are pointers and are nil when the source did not provide them.
type LapRecord struct {
	// Identity
	Driver    string // Driver is the short code used on the broadcast, e.g. "VER"
	GrandPrix string // GrandPrix is the event the lap was run at, e.g. "Monza"
	Season    int    // Season is the championship year, 0 when unknown
	LapNumber int    // LapNumber is the lap of the race the record describes
	// Measurements
	LapTime     float64     // LapTime is the lap time in seconds
	Sectors     [3]*float64 // Sectors holds the three sector times in seconds
	TyreLife    int         // TyreLife is the number of laps run on the fitted tyre set
	Compound    TireCompound
	TrackTemp   *float64 // TrackTemp is the track surface temperature in °C
	IsWetLap    bool     // IsWetLap marks a lap run on a wet track
	Stint       int      // Stint identifies the tyre stint the lap belongs to
	PitLap      *int     // PitLap is set on pit-in laps only
	PitDuration *float64 // PitDuration is the time spent in the pit lane in seconds
	TrackStatus TrackStatus
	// Derived at load
	Team            string
	TeamColor       string
	DriverColor     string
	DriverSeason    string // DriverSeason is the display label combining driver and season
	GrandPrixSeason string // GrandPrixSeason is the display label combining event and season
}

// Key returns the natural key of the record.
func (r LapRecord) Key() LapKey {
	return LapKey{Driver: r.Driver, GrandPrix: r.GrandPrix, Season: r.Season, LapNumber: r.LapNumber}
}

// LapKey uniquely identifies a lap within the unified lap table.
type LapKey struct {
	Driver    string
	GrandPrix string
	Season    int
	LapNumber int
}

// Clone returns a copy of the record that shares no optional measurement with r.
func (r LapRecord) Clone() LapRecord {
	for i, s := range r.Sectors {
		r.Sectors[i] = clonePtr(s)
	}
	r.TrackTemp = clonePtr(r.TrackTemp)
	r.PitLap = clonePtr(r.PitLap)
	r.PitDuration = clonePtr(r.PitDuration)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
