// Package pattern recognizes which of the publisher's historical page
// layouts a document uses and dispatches to the parser for that layout.
package pattern

import "fmt"

// Tag names one observed layout convention.
type Tag int

const (
	// Fallback means no specific convention was recognized; the generic
	// normalizer is used.
	Fallback Tag = iota
	// DirectRaceHeader pages put race names in the top-level headings.
	DirectRaceHeader
	// NestedRaceHeader pages put race names one heading level below a
	// generic section heading.
	NestedRaceHeader
	// LabelBeforeList pages precede each list with a short plain
	// paragraph naming the entity.
	LabelBeforeList
	// NestedEmphasis pages nest lists under emphasized list-item labels.
	NestedEmphasis
)

// Tags lists every tag in detection order, Fallback last.
var Tags = []Tag{DirectRaceHeader, NestedRaceHeader, LabelBeforeList, NestedEmphasis, Fallback}

var tagNames = map[Tag]string{
	Fallback:         "fallback",
	DirectRaceHeader: "direct-race-header",
	NestedRaceHeader: "nested-race-header",
	LabelBeforeList:  "label-before-list",
	NestedEmphasis:   "nested-emphasis",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// ParseTag converts a tag name back into a Tag.
func ParseTag(name string) (Tag, error) {
	for _, tag := range Tags {
		if tagNames[tag] == name {
			return tag, nil
		}
	}
	return Fallback, fmt.Errorf("unknown layout %q", name)
}
