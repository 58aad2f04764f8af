package types

import (
	"fmt"
	"strings"
)

// EntityKind is the type of a catalog entity.
type EntityKind string

const (
	KindUnit     EntityKind = "unit"
	KindBuilding EntityKind = "building"
	KindUpgrade  EntityKind = "upgrade"
	KindAbility  EntityKind = "ability"
	KindMechanic EntityKind = "mechanic"
)

// ParseEntityKind converts a catalog "type" value. Empty defaults to unit.
func ParseEntityKind(name string) (EntityKind, error) {
	switch kind := EntityKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case "":
		return KindUnit, nil
	case KindUnit, KindBuilding, KindUpgrade, KindAbility, KindMechanic:
		return kind, nil
	}
	return "", fmt.Errorf("unknown entity type %q", name)
}
