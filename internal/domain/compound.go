package domain

import "strings"

const (
	TireCompoundSoft         TireCompound = "SOFT"
	TireCompoundMedium       TireCompound = "MEDIUM"
	TireCompoundHard         TireCompound = "HARD"
	TireCompoundIntermediate TireCompound = "INTERMEDIATE"
	TireCompoundFullWet      TireCompound = "WET"
	TireCompoundUnknown      TireCompound = "UNKNOWN"
)

// TireCompounds lists the compounds a lap record may carry, from the softest dry tyre to the full
// wet.
var TireCompounds = []TireCompound{
	TireCompoundSoft,
	TireCompoundMedium,
	TireCompoundHard,
	TireCompoundIntermediate,
	TireCompoundFullWet,
}

// TireCompound represents one of the official tire compound types used in a race weekend.
type TireCompound string

// ParseTireCompound maps a raw compound value onto the known compounds ignoring case and
// surrounding whitespace. Values outside the known compounds report false.
func ParseTireCompound(s string) (TireCompound, bool) {
	v := TireCompound(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range TireCompounds {
		if v == c {
			return c, true
		}
	}
	return TireCompoundUnknown, false
}

// Label returns the display name of the compound, e.g. "Soft".
func (c TireCompound) Label() string {
	if c == "" {
		return ""
	}
	s := strings.ToLower(string(c))
	return strings.ToUpper(s[:1]) + s[1:]
}
