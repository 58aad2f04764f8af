// Package normalize turns the element stream of a patch-notes page into a
// canonical tree of section, race, entity and change nodes.
package normalize

import (
	"fmt"
	"strings"
)

// Kind is the type of a tree node.
type Kind int

const (
	KindSection Kind = iota + 1
	KindRace
	KindEntity
	KindChange
)

var kindNames = map[Kind]string{
	KindSection: "section",
	KindRace:    "race",
	KindEntity:  "entity",
	KindChange:  "change",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", text)
}

// Node is one element of a normalized tree. Change nodes are always leaves.
type Node struct {
	Kind     Kind    `json:"kind"`
	Text     string  `json:"text"`
	Children []*Node `json:"children,omitempty"`
}

func newNode(kind Kind, text string) *Node {
	return &Node{Kind: kind, Text: text}
}

func (n *Node) add(child *Node) {
	n.Children = append(n.Children, child)
}

// Walk visits nodes depth-first in document order. Returning false from fn
// skips the node's children.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// CountChanges returns the number of change leaves in the tree.
func CountChanges(nodes []*Node) int {
	count := 0
	Walk(nodes, func(n *Node, _ int) bool {
		if n.Kind == KindChange {
			count++
		}
		return true
	})
	return count
}

// Format renders the tree one node per line, indented by depth.
func Format(nodes []*Node) string {
	var sb strings.Builder
	Walk(nodes, func(n *Node, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(n.Kind.String())
		sb.WriteString(": ")
		sb.WriteString(n.Text)
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}
