package normalize

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/coolbeans/sc2patches/pkg/document"
)

// State is the innermost context open in a Builder.
type State int

const (
	NoContext State = iota
	InSection
	InRace
	InEntity
)

func (s State) String() string {
	switch s {
	case InSection:
		return "in-section"
	case InRace:
		return "in-race"
	case InEntity:
		return "in-entity"
	}
	return "no-context"
}

// Builder is the cursor state machine that assembles a tree in a single
// top-down pass. It tracks the open section, race and entity nodes; any of
// them may be absent.
type Builder struct {
	primary int
	nodes   []*Node

	section *Node
	race    *Node
	entity  *Node
}

// NewBuilder returns a Builder for a document whose shallowest heading
// level is primaryLevel (0 when the document has no headings).
func NewBuilder(primaryLevel int) *Builder {
	return &Builder{primary: primaryLevel}
}

// Nodes returns the root nodes built so far.
func (b *Builder) Nodes() []*Node {
	return b.nodes
}

// State reports the innermost open context.
func (b *Builder) State() State {
	switch {
	case b.entity != nil:
		return InEntity
	case b.race != nil:
		return InRace
	case b.section != nil:
		return InSection
	}
	return NoContext
}

// OpenSection starts a new top-level section, closing any open race and
// entity.
func (b *Builder) OpenSection(text string) *Node {
	n := newNode(KindSection, text)
	b.nodes = append(b.nodes, n)
	b.section, b.race, b.entity = n, nil, nil
	return n
}

// OpenRace starts a race under the open section, or at the root.
func (b *Builder) OpenRace(text string) *Node {
	n := newNode(KindRace, text)
	b.attachUnderSection(n)
	b.race, b.entity = n, nil
	return n
}

// OpenTopRace starts a race at the root. A race heading at the primary
// level opens a fresh scope, so the open section is closed too.
func (b *Builder) OpenTopRace(text string) *Node {
	n := newNode(KindRace, text)
	b.nodes = append(b.nodes, n)
	b.section, b.race, b.entity = nil, n, nil
	return n
}

// OpenEntity starts an entity under the open race, section or root.
func (b *Builder) OpenEntity(text string) *Node {
	n := newNode(KindEntity, text)
	b.attachUnderRace(n)
	b.entity = n
	return n
}

// CloseEntity ends the open entity without opening anything else.
func (b *Builder) CloseEntity() {
	b.entity = nil
}

// AddChange attaches a change leaf to the innermost open node.
func (b *Builder) AddChange(text string) {
	if text == "" {
		return
	}
	b.attachInnermost(changeNode(text))
}

// Heading applies the transition for a heading at level.
func (b *Builder) Heading(level int, text string) {
	if text == "" {
		return
	}
	top := b.primary == 0 || level <= b.primary

	kind, ok := ClassifyLabel(text)
	switch {
	case ok && kind == KindRace && top:
		b.OpenTopRace(text)
	case ok && kind == KindRace:
		b.OpenRace(text)
	case ok && kind == KindSection, top:
		b.OpenSection(text)
	case ok:
		b.OpenEntity(text)
	default:
		b.CloseEntity()
	}
}

// Label applies the transition for an emphasized or paragraph label. It
// reports false when text is too long to be a label.
func (b *Builder) Label(text string) bool {
	kind, ok := ClassifyLabel(text)
	if !ok {
		return false
	}
	switch kind {
	case KindRace:
		b.OpenRace(text)
	case KindSection:
		b.OpenSection(text)
	default:
		b.OpenEntity(text)
	}
	return true
}

// AddList converts the items of a ul or ol element. Labelled items with a
// nested list become subtrees; every other item becomes a change under the
// innermost open node.
func (b *Builder) AddList(list *goquery.Selection) {
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		item := readItem(li)
		switch {
		case item.text == "":
		case item.labelled():
			n := newNode(item.kind, item.label)
			switch item.kind {
			case KindRace:
				b.attachUnderSection(n)
				b.race, b.entity = n, nil
			case KindSection:
				b.attachUnderSection(n)
			default:
				b.attachUnderRace(n)
			}
			fillList(n, item.nested, 1)
		case item.nested.Length() > 0:
			if item.label != "" {
				b.attachInnermost(changeNode(item.label))
			}
			b.AddList(item.nested)
		default:
			b.attachInnermost(changeNode(item.text))
		}
	})
}

// fillList adds the items of list under parent. depth counts the labelled
// levels already open above list.
func fillList(parent *Node, list *goquery.Selection, depth int) {
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		item := readItem(li)
		switch {
		case item.text == "":
		case item.labelled() && depth < MaxListDepth:
			n := newNode(item.kind, item.label)
			parent.add(n)
			fillList(n, item.nested, depth+1)
		case item.labelled():
			parent.add(changeNode(item.text))
		case item.nested.Length() > 0:
			if item.label != "" {
				parent.add(changeNode(item.label))
			}
			fillList(parent, item.nested, depth)
		default:
			parent.add(changeNode(item.text))
		}
	})
}

// listItem is the reading of one li element.
type listItem struct {
	text   string
	label  string
	kind   Kind
	nested *goquery.Selection
}

func (it listItem) labelled() bool {
	return it.kind != 0
}

func readItem(li *goquery.Selection) listItem {
	item := listItem{
		text:   document.Text(li),
		nested: document.NestedList(li),
	}
	if item.nested.Length() == 0 {
		return item
	}
	if label, ok := document.LeadingEmphasis(li); ok {
		item.label = label
	} else {
		item.label = document.DirectText(li)
	}
	if kind, ok := ClassifyLabel(item.label); ok {
		item.kind = kind
	}
	return item
}

func (b *Builder) attachUnderSection(n *Node) {
	if b.section != nil {
		b.section.add(n)
		return
	}
	b.nodes = append(b.nodes, n)
}

func (b *Builder) attachUnderRace(n *Node) {
	if b.race != nil {
		b.race.add(n)
		return
	}
	b.attachUnderSection(n)
}

func (b *Builder) attachInnermost(n *Node) {
	if b.entity != nil {
		b.entity.add(n)
		return
	}
	b.attachUnderRace(n)
}
