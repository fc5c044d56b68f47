package domain

// Selection is the user's current filter over the lap table. Zero values mean "no restriction":
// Season 0 matches every season, an empty GrandPrix matches every event and empty Drivers or
// Compounds match every driver or compound.
type Selection struct {
	Season        int
	GrandPrix     string
	Drivers       []string
	Compounds     []TireCompound
	GreenFlagOnly bool // GreenFlagOnly drops laps run under SC, VSC or red flag
}
