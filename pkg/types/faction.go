// Package types defines the shared vocabulary of the patch-notes engine:
// factions, entity kinds and section categories.
package types

import (
	"fmt"
	"strings"
)

// Faction is one of the in-document race groupings.
type Faction string

const (
	FactionTerran  Faction = "terran"
	FactionProtoss Faction = "protoss"
	FactionZerg    Faction = "zerg"
	FactionNeutral Faction = "neutral"
)

// Factions lists every faction in catalog order.
var Factions = []Faction{FactionTerran, FactionProtoss, FactionZerg, FactionNeutral}

// PlayableRaces are the factions whose names appear as race headers.
var PlayableRaces = []Faction{FactionTerran, FactionProtoss, FactionZerg}

// ParseFaction converts a case-insensitive name into a Faction.
func ParseFaction(name string) (Faction, error) {
	switch Faction(strings.ToLower(strings.TrimSpace(name))) {
	case FactionTerran:
		return FactionTerran, nil
	case FactionProtoss:
		return FactionProtoss, nil
	case FactionZerg:
		return FactionZerg, nil
	case FactionNeutral:
		return FactionNeutral, nil
	}
	return "", fmt.Errorf("unknown faction %q", name)
}

// RaceFromName reports the playable race whose name equals text exactly,
// ignoring case ("Zerg", "ZERG", "zerg"). Neutral is never a race header.
func RaceFromName(text string) (Faction, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, race := range PlayableRaces {
		if lower == string(race) {
			return race, true
		}
	}
	return "", false
}

// DisplayName returns the capitalized faction name used in headers.
func (f Faction) DisplayName() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// UnknownID is the sentinel entity id for text that matches no catalog name.
func (f Faction) UnknownID() string {
	return string(f) + "-unknown"
}
