package domain

import (
	"strconv"
	"strings"
)

// TeamOther is the team assigned to drivers whose team is not known in any of their records.
const TeamOther = "Other"

// teamColors is the fixed palette keyed by team name. Keys are lower case; lookups go through
// TeamColor.
var teamColors = map[string]string{
	"red bull racing": "#3671C6",
	"red bull":        "#3671C6",
	"ferrari":         "#E8002D",
	"mercedes":        "#27F4D2",
	"mclaren":         "#FF8000",
	"aston martin":    "#229971",
	"alpine":          "#FF87BC",
	"williams":        "#64C4FF",
	"rb":              "#6692FF",
	"alphatauri":      "#5E8FAA",
	"kick sauber":     "#52E252",
	"alfa romeo":      "#C92D4B",
	"haas f1 team":    "#B6BABD",
	"haas":            "#B6BABD",
}

// otherColor is used for "Other" and any team missing from the palette.
const otherColor = "#888888"

// TeamColor returns the primary color of the given team.
func TeamColor(team string) string {
	if c, ok := teamColors[strings.ToLower(strings.TrimSpace(team))]; ok {
		return c
	}
	return otherColor
}

// DriverSeasonLabel combines a driver code with a season year, e.g. "VER 2023". An unknown season
// (0) yields the driver code alone.
func DriverSeasonLabel(driver string, season int) string {
	return seasonLabel(driver, season)
}

// GrandPrixSeasonLabel combines a Grand Prix with a season year, e.g. "Monza 2023".
func GrandPrixSeasonLabel(grandPrix string, season int) string {
	return seasonLabel(grandPrix, season)
}

func seasonLabel(name string, season int) string {
	if season == 0 {
		return name
	}
	return name + " " + strconv.Itoa(season)
}
