package extract

import (
	"strings"

	"github.com/coolbeans/sc2patches/pkg/types"
)

// Rule names reported for drop decisions.
const (
	RuleUICosmetic     = "ui-cosmetic"
	RuleBugFixPhrasing = "bugfix-phrasing"
	RuleSectionBugFix  = "section-bugfix"
	RuleSectionCoOp    = "section-coop"
)

// TextRule drops a change whose lower-cased text contains any phrase.
type TextRule struct {
	Name    string
	Phrases []string
}

// TextRules is the text denylist, checked in order. Bare "animation" and
// "model size" must not be added; those changes affect gameplay.
var TextRules = []TextRule{
	{
		Name: RuleUICosmetic,
		Phrases: []string{
			"button", "tab-select", "icon", "wireframe", "tooltip",
			"sound", "graphic", "particle effect", "visual animation", "cosmetic",
		},
	},
	{
		Name: RuleBugFixPhrasing,
		Phrases: []string{
			"fixed an issue", "fixed a display issue", "fixed a bug",
			"fixed multiple", "fixed various",
		},
	},
}

// sectionRules drops changes filed under non-balance categories.
var sectionRules = map[types.Category]string{
	types.CategoryBugFix: RuleSectionBugFix,
	types.CategoryCoOp:   RuleSectionCoOp,
}

func matchText(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range TextRules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lower, phrase) {
				return rule.Name, true
			}
		}
	}
	return "", false
}

func matchSection(category types.Category) (string, bool) {
	name, ok := sectionRules[category]
	return name, ok
}
