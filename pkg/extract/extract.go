// Package extract walks a normalized tree and emits the balance changes it
// contains, each attributed to an entity and a section category.
package extract

import (
	"strings"

	"github.com/coolbeans/sc2patches/pkg/catalog"
	"github.com/coolbeans/sc2patches/pkg/normalize"
	"github.com/coolbeans/sc2patches/pkg/section"
	"github.com/coolbeans/sc2patches/pkg/types"
)

// RawChange is one extracted change, not yet classified as buff or nerf.
type RawChange struct {
	EntityID string         `json:"entity_id"`
	Text     string         `json:"raw_text"`
	Category types.Category `json:"section_category"`
}

// Decision records what happened to one change leaf. Rule is empty for
// kept changes.
type Decision struct {
	Change  RawChange
	Faction types.Faction
	Kept    bool
	Rule    string
}

// Trace receives every leaf decision in document order.
type Trace func(Decision)

// Option configures an Extractor.
type Option func(*Extractor)

// WithPolicy remaps resolved ids through an attribution table.
func WithPolicy(policy *catalog.Policy) Option {
	return func(e *Extractor) {
		e.policy = policy
	}
}

// WithTrace installs a decision hook.
func WithTrace(trace Trace) Option {
	return func(e *Extractor) {
		e.trace = trace
	}
}

// Extractor turns normalized trees into change lists. It holds no
// per-document state and is safe for concurrent use when its Trace is.
type Extractor struct {
	catalog *catalog.Catalog
	policy  *catalog.Policy
	trace   Trace
}

// New returns an Extractor resolving entities against cat.
func New(cat *catalog.Catalog, opts ...Option) *Extractor {
	e := &Extractor{catalog: cat}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract is shorthand for New(cat, opts...).Extract(nodes).
func Extract(nodes []*normalize.Node, cat *catalog.Catalog, opts ...Option) []RawChange {
	return New(cat, opts...).Extract(nodes)
}

// scope is the context inherited from enclosing nodes. It is passed by
// value so siblings never see each other's changes to it.
type scope struct {
	faction  types.Faction
	category types.Category
	entity   string
}

// Extract returns the changes in nodes that survive the text and section
// filters, in document order.
func (e *Extractor) Extract(nodes []*normalize.Node) []RawChange {
	var out []RawChange
	e.walk(nodes, scope{}, &out)
	return out
}

func (e *Extractor) walk(nodes []*normalize.Node, sc scope, out *[]RawChange) {
	for _, n := range nodes {
		switch n.Kind {
		case normalize.KindSection:
			e.walk(n.Children, enterSection(sc, n.Text), out)
		case normalize.KindRace:
			e.walk(n.Children, enterRace(sc, n.Text), out)
		case normalize.KindEntity:
			e.walk(n.Children, e.enterEntity(sc, n.Text), out)
		case normalize.KindChange:
			if change, ok := e.leaf(sc, n.Text); ok {
				*out = append(*out, change)
			}
		}
	}
}

func enterSection(sc scope, text string) scope {
	if category := section.Classify(text); category != types.CategoryUnknown {
		sc.category = category
	}
	sc.entity = ""
	return sc
}

func enterRace(sc scope, text string) scope {
	if faction, ok := types.RaceFromName(text); ok {
		sc.faction = faction
	}
	if sc.category == types.CategoryUnknown {
		sc.category = types.CategoryVersusBalance
	}
	sc.entity = ""
	return sc
}

// enterEntity pins the entity only when the label names a catalog entry.
// Without race context an exact name match also supplies the faction.
func (e *Extractor) enterEntity(sc scope, text string) scope {
	sc.entity = ""
	if sc.faction != "" {
		if id := e.catalog.Resolve(text, sc.faction); e.catalog.Contains(id) {
			sc.entity = id
		}
		return sc
	}
	if entity, ok := e.catalog.Lookup(text); ok {
		sc.faction = entity.Faction
		sc.entity = entity.ID
	}
	return sc
}

func (e *Extractor) leaf(sc scope, text string) (RawChange, bool) {
	faction, id := sc.faction, sc.entity
	if id == "" {
		id = e.resolve(text, faction)
	}
	if faction == "" {
		faction = types.FactionNeutral
		if entity, ok := e.catalog.Entity(id); ok {
			faction = entity.Faction
		}
	}

	change := RawChange{EntityID: e.policy.Attribute(id), Text: text, Category: sc.category}
	if change.EntityID != id {
		change.Text = e.regroupedText(id, text)
	}

	rule, dropped := matchText(text)
	if !dropped {
		rule, dropped = matchSection(sc.category)
	}
	if e.trace != nil {
		e.trace(Decision{Change: change, Faction: faction, Kept: !dropped, Rule: rule})
	}
	return change, !dropped
}

// regroupedText prefixes a remapped change with the display name of the
// entity it resolved to: "[Grooved Spines] Research time reduced.".
func (e *Extractor) regroupedText(childID, text string) string {
	child, ok := e.catalog.Entity(childID)
	if !ok {
		return text
	}
	prefix := "[" + child.Name + "]"
	if strings.HasPrefix(text, prefix) {
		return text
	}
	return prefix + " " + text
}

// resolve matches text under faction, or across every faction when the
// tree gave no race context.
func (e *Extractor) resolve(text string, faction types.Faction) string {
	if faction != "" {
		return e.catalog.Resolve(text, faction)
	}
	if entity, ok := e.catalog.Identify(text); ok {
		return entity.ID
	}
	return types.FactionNeutral.UnknownID()
}

// Tally counts decisions. Record can be passed to WithTrace.
type Tally struct {
	Leaves  int
	Kept    int
	Dropped map[string]int
}

// Record adds one decision.
func (t *Tally) Record(d Decision) {
	t.Leaves++
	if d.Kept {
		t.Kept++
		return
	}
	if t.Dropped == nil {
		t.Dropped = make(map[string]int)
	}
	t.Dropped[d.Rule]++
}
