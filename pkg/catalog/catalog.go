// Package catalog holds the static registry of known game entities and
// resolves free change text to a faction-qualified entity id.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/coolbeans/sc2patches/pkg/types"
)

var (
	// ErrMalformedEntry is returned when a catalog record is incomplete or
	// invalid. Loading stops at the first such record.
	ErrMalformedEntry = errors.New("malformed catalog entry")

	// ErrUnknownEntity is returned when a reference names an id that is not
	// in the catalog.
	ErrUnknownEntity = errors.New("unknown entity")
)

// idPattern matches "{faction}-{snake_case_name}".
var idPattern = regexp.MustCompile(`^([a-z]+)-([a-z0-9]+(?:_[a-z0-9]+)*)$`)

// Entity is one known game object.
type Entity struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Faction types.Faction    `json:"faction"`
	Kind    types.EntityKind `json:"type"`
}

// record is the on-disk shape. Older data files use "race" for the faction.
type record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Faction string `json:"faction"`
	Race    string `json:"race"`
	Type    string `json:"type"`
}

// Catalog is an immutable entity registry. It is safe for concurrent use.
type Catalog struct {
	entities []Entity
	byID     map[string]int
	byName   map[string]int
	matchers map[types.Faction]*matcher
}

// Load reads a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer file.Close()

	catalog, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes a JSON array of entity records.
func Parse(r io.Reader) (*Catalog, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	entities := make([]Entity, 0, len(records))
	for i, rec := range records {
		entity, err := rec.entity()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		entities = append(entities, entity)
	}
	return New(entities)
}

func (rec record) entity() (Entity, error) {
	factionName := rec.Faction
	if factionName == "" {
		factionName = rec.Race
	}

	switch {
	case strings.TrimSpace(rec.ID) == "":
		return Entity{}, fmt.Errorf("%w: missing id", ErrMalformedEntry)
	case strings.TrimSpace(rec.Name) == "":
		return Entity{}, fmt.Errorf("%w: %s: missing name", ErrMalformedEntry, rec.ID)
	case strings.TrimSpace(factionName) == "":
		return Entity{}, fmt.Errorf("%w: %s: missing faction", ErrMalformedEntry, rec.ID)
	}

	faction, err := types.ParseFaction(factionName)
	if err != nil {
		return Entity{}, fmt.Errorf("%w: %s: %v", ErrMalformedEntry, rec.ID, err)
	}
	kind, err := types.ParseEntityKind(rec.Type)
	if err != nil {
		return Entity{}, fmt.Errorf("%w: %s: %v", ErrMalformedEntry, rec.ID, err)
	}

	return Entity{
		ID:      strings.TrimSpace(rec.ID),
		Name:    strings.TrimSpace(rec.Name),
		Faction: faction,
		Kind:    kind,
	}, nil
}

// New validates entities and builds a Catalog. Ids must be unique and of
// the form "{faction}-{snake_case_name}".
func New(entities []Entity) (*Catalog, error) {
	catalog := &Catalog{
		entities: make([]Entity, 0, len(entities)),
		byID:     make(map[string]int, len(entities)),
		byName:   make(map[string]int, len(entities)),
		matchers: make(map[types.Faction]*matcher, len(types.Factions)),
	}

	for _, entity := range entities {
		if err := validateEntity(entity); err != nil {
			return nil, err
		}
		if _, exists := catalog.byID[entity.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrMalformedEntry, entity.ID)
		}

		index := len(catalog.entities)
		catalog.entities = append(catalog.entities, entity)
		catalog.byID[entity.ID] = index

		nameKey := strings.ToLower(entity.Name)
		if _, exists := catalog.byName[nameKey]; !exists {
			catalog.byName[nameKey] = index
		}
	}

	for _, faction := range types.Factions {
		m, err := newMatcher(catalog.ByFaction(faction))
		if err != nil {
			return nil, fmt.Errorf("building %s matcher: %w", faction, err)
		}
		catalog.matchers[faction] = m
	}

	return catalog, nil
}

func validateEntity(entity Entity) error {
	if entity.ID == "" || entity.Name == "" || entity.Faction == "" {
		return fmt.Errorf("%w: %q: id, name and faction are required", ErrMalformedEntry, entity.ID)
	}
	parts := idPattern.FindStringSubmatch(entity.ID)
	if parts == nil {
		return fmt.Errorf("%w: id %q is not {faction}-{snake_case_name}", ErrMalformedEntry, entity.ID)
	}
	if parts[1] != string(entity.Faction) {
		return fmt.Errorf("%w: id %q does not match faction %s", ErrMalformedEntry, entity.ID, entity.Faction)
	}
	if entity.ID == entity.Faction.UnknownID() {
		return fmt.Errorf("%w: id %q is reserved", ErrMalformedEntry, entity.ID)
	}
	return nil
}

// Resolve returns the id of the longest catalog name registered under
// faction that occurs in text, ignoring case. Text that contains no known
// name resolves to "{faction}-unknown".
func (c *Catalog) Resolve(text string, faction types.Faction) string {
	if m, ok := c.matchers[faction]; ok {
		if entity, found := m.longest(text); found {
			return entity.ID
		}
	}
	return faction.UnknownID()
}

// Identify finds the longest catalog name occurring in text across all
// factions. Equal lengths prefer the faction listed first in types.Factions.
func (c *Catalog) Identify(text string) (Entity, bool) {
	var best Entity
	found := false
	for _, faction := range types.Factions {
		m, ok := c.matchers[faction]
		if !ok {
			continue
		}
		if entity, ok := m.longest(text); ok && (!found || len(entity.Name) > len(best.Name)) {
			best, found = entity, true
		}
	}
	return best, found
}

// Lookup finds an entity by exact display name across all factions,
// ignoring case. The first registered entity wins.
func (c *Catalog) Lookup(name string) (Entity, bool) {
	index, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entity{}, false
	}
	return c.entities[index], true
}

// Entity returns the entity with the given id.
func (c *Catalog) Entity(id string) (Entity, bool) {
	index, ok := c.byID[id]
	if !ok {
		return Entity{}, false
	}
	return c.entities[index], true
}

// Contains reports whether id is a catalog id.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// ByFaction returns the faction's entities in catalog order.
func (c *Catalog) ByFaction(faction types.Faction) []Entity {
	var result []Entity
	for _, entity := range c.entities {
		if entity.Faction == faction {
			result = append(result, entity)
		}
	}
	return result
}

// Entities returns a copy of all entities in catalog order.
func (c *Catalog) Entities() []Entity {
	result := make([]Entity, len(c.entities))
	copy(result, c.entities)
	return result
}

// Len returns the number of entities.
func (c *Catalog) Len() int {
	return len(c.entities)
}
