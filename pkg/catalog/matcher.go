package catalog

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// matcher finds catalog names inside free text for a single faction.
type matcher struct {
	automaton *ahocorasick.Automaton
	patterns  []string
	entities  []Entity
}

// newMatcher compiles the lower-cased names of entities. Names that repeat
// within a faction keep their first entity.
func newMatcher(entities []Entity) (*matcher, error) {
	m := &matcher{}
	seen := make(map[string]bool, len(entities))
	for _, entity := range entities {
		pattern := strings.ToLower(entity.Name)
		if seen[pattern] {
			continue
		}
		seen[pattern] = true
		m.patterns = append(m.patterns, pattern)
		m.entities = append(m.entities, entity)
	}

	if len(m.patterns) == 0 {
		return m, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(m.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	m.automaton = automaton
	return m, nil
}

// longest returns the entity whose name is the longest one found in text.
// Equal lengths keep the earlier catalog entry.
func (m *matcher) longest(text string) (Entity, bool) {
	if m.automaton == nil || text == "" {
		return Entity{}, false
	}

	best := -1
	for _, match := range m.automaton.FindAllOverlapping([]byte(strings.ToLower(text))) {
		id := match.PatternID
		if id < 0 || id >= len(m.patterns) {
			continue
		}
		if best < 0 || len(m.patterns[id]) > len(m.patterns[best]) ||
			(len(m.patterns[id]) == len(m.patterns[best]) && id < best) {
			best = id
		}
	}

	if best < 0 {
		return Entity{}, false
	}
	return m.entities[best], true
}
