// Package section maps patch-note header text to a content category.
package section

import (
	"strings"

	"github.com/coolbeans/sc2patches/pkg/types"
)

// Rule maps any of its keywords to a category.
type Rule struct {
	Keywords []string
	Category types.Category
}

// Rules is the ordered classification table. Headers often carry several
// keywords ("Balance Bug Fixes"), so the first matching rule wins and bug
// fixes are checked before balance.
var Rules = []Rule{
	{Keywords: []string{"bug", "fix"}, Category: types.CategoryBugFix},
	{Keywords: []string{"co-op", "coop"}, Category: types.CategoryCoOp},
	{Keywords: []string{"versus", "balance"}, Category: types.CategoryVersusBalance},
	{Keywords: []string{"general"}, Category: types.CategoryGeneral},
}

// headerOnlyKeywords mark a header as a section without implying a category.
var headerOnlyKeywords = []string{"quality of life", "maps"}

// Classify returns the category of a header. Unmatched text is Unknown.
func Classify(header string) types.Category {
	if rule, ok := match(header); ok {
		return rule.Category
	}
	return types.CategoryUnknown
}

// IsSectionHeader reports whether the text reads as a section header
// rather than an entity label.
func IsSectionHeader(text string) bool {
	if _, ok := match(text); ok {
		return true
	}
	lower := strings.ToLower(text)
	for _, keyword := range headerOnlyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func match(header string) (Rule, bool) {
	lower := strings.ToLower(header)
	for _, rule := range Rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}
