package domain

const (
	TrackStatusGreen            = "GREEN"
	TrackStatusSafetyCar        = "SC"
	TrackStatusVirtualSafetyCar = "VSC"
	TrackStatusRedFlag          = "RED"
)

// TrackStatus captures the race control state a lap was run under. More than one flag may be set
// when the status changed mid-lap.
type TrackStatus struct {
	SafetyCar        bool
	VirtualSafetyCar bool
	RedFlag          bool
}

// IsNeutralized reports whether the lap was affected by a safety car, a virtual safety car or a
// red flag.
func (s TrackStatus) IsNeutralized() bool {
	return s.SafetyCar || s.VirtualSafetyCar || s.RedFlag
}

// String returns the most severe status that applied to the lap.
func (s TrackStatus) String() string {
	switch {
	case s.RedFlag:
		return TrackStatusRedFlag
	case s.SafetyCar:
		return TrackStatusSafetyCar
	case s.VirtualSafetyCar:
		return TrackStatusVirtualSafetyCar
	default:
		return TrackStatusGreen
	}
}
