package domain

import "testing"

func TestParseTireCompound(t *testing.T) {
	tests := map[string]struct {
		want TireCompound
		ok   bool
	}{
		"SOFT":         {TireCompoundSoft, true},
		" medium ":     {TireCompoundMedium, true},
		"Intermediate": {TireCompoundIntermediate, true},
		"wet":          {TireCompoundFullWet, true},
		"SUPERSOFT":    {TireCompoundUnknown, false},
		"":             {TireCompoundUnknown, false},
	}
	for in, tc := range tests {
		got, ok := ParseTireCompound(in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("'%s': expected %s %v but found %s %v", in, tc.want, tc.ok, got, ok)
		}
	}
}

func TestTireCompoundLabel(t *testing.T) {
	if l := TireCompoundIntermediate.Label(); l != "Intermediate" {
		t.Errorf("expected 'Intermediate' but found '%s'", l)
	}
}

func TestTrackStatus(t *testing.T) {
	if (TrackStatus{}).IsNeutralized() {
		t.Errorf("expected a green lap not to be neutralized")
	}
	s := TrackStatus{SafetyCar: true, RedFlag: true}
	if !s.IsNeutralized() {
		t.Errorf("expected a red flag lap to be neutralized")
	}
	if s.String() != TrackStatusRedFlag {
		t.Errorf("expected %s but found %s", TrackStatusRedFlag, s.String())
	}
	if (TrackStatus{VirtualSafetyCar: true}).String() != TrackStatusVirtualSafetyCar {
		t.Errorf("expected %s", TrackStatusVirtualSafetyCar)
	}
}

func TestLabels(t *testing.T) {
	if l := DriverSeasonLabel("VER", 2023); l != "VER 2023" {
		t.Errorf("expected 'VER 2023' but found '%s'", l)
	}
	if l := GrandPrixSeasonLabel("Monza", 0); l != "Monza" {
		t.Errorf("expected 'Monza' but found '%s'", l)
	}
	if c := TeamColor(" Ferrari "); c != "#E8002D" {
		t.Errorf("expected the Ferrari color but found %s", c)
	}
	if TeamColor(TeamOther) != otherColor {
		t.Errorf("expected the fallback color for %s", TeamOther)
	}
}
