package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// RegroupRule files changes to a child entity (an upgrade, an ability, a
// summoned unit) under its parent.
type RegroupRule struct {
	Child  string `yaml:"child"`
	Parent string `yaml:"parent"`
	Note   string `yaml:"note,omitempty"`
}

type policyFile struct {
	Regroup []RegroupRule `yaml:"regroup"`
}

// Policy is the static attribution table supplied alongside the catalog.
// A nil Policy attributes every id to itself.
type Policy struct {
	parents map[string]string
	rules   []RegroupRule
}

// LoadPolicy reads an attribution table from a YAML file and validates it
// against catalog.
func LoadPolicy(path string, catalog *Catalog) (*Policy, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening policy %s: %w", path, err)
	}
	defer file.Close()

	policy, err := ParsePolicy(file, catalog)
	if err != nil {
		return nil, fmt.Errorf("loading policy %s: %w", path, err)
	}
	return policy, nil
}

// ParsePolicy decodes an attribution table. Every id must exist in catalog,
// child and parent must share a faction, and a parent cannot itself be
// regrouped.
func ParsePolicy(r io.Reader, catalog *Catalog) (*Policy, error) {
	var doc policyFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding policy: %w", err)
	}

	policy := &Policy{parents: make(map[string]string, len(doc.Regroup))}
	for i, rule := range doc.Regroup {
		child, ok := catalog.Entity(rule.Child)
		if !ok {
			return nil, fmt.Errorf("rule %d: child %q: %w", i, rule.Child, ErrUnknownEntity)
		}
		parent, ok := catalog.Entity(rule.Parent)
		if !ok {
			return nil, fmt.Errorf("rule %d: parent %q: %w", i, rule.Parent, ErrUnknownEntity)
		}
		if child.Faction != parent.Faction {
			return nil, fmt.Errorf("rule %d: %s and %s belong to different factions", i, child.ID, parent.ID)
		}
		if child.ID == parent.ID {
			return nil, fmt.Errorf("rule %d: %s is regrouped onto itself", i, child.ID)
		}
		if _, dup := policy.parents[child.ID]; dup {
			return nil, fmt.Errorf("rule %d: duplicate child %s", i, child.ID)
		}
		policy.parents[child.ID] = parent.ID
		policy.rules = append(policy.rules, rule)
	}

	for child, parent := range policy.parents {
		if _, chained := policy.parents[parent]; chained {
			return nil, fmt.Errorf("parent %s of %s is itself regrouped", parent, child)
		}
	}

	return policy, nil
}

// Attribute returns the id a change to id should be filed under.
func (p *Policy) Attribute(id string) string {
	if p == nil {
		return id
	}
	if parent, ok := p.parents[id]; ok {
		return parent
	}
	return id
}

// Rules returns the table in file order.
func (p *Policy) Rules() []RegroupRule {
	if p == nil {
		return nil
	}
	result := make([]RegroupRule, len(p.rules))
	copy(result, p.rules)
	return result
}

// Len returns the number of rules.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}
