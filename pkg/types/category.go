package types

import "fmt"

// Category is the coarse bucket a change is filed under.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryVersusBalance
	CategoryBugFix
	CategoryCoOp
	CategoryGeneral
)

var categoryNames = map[Category]string{
	CategoryUnknown:       "unknown",
	CategoryVersusBalance: "versus/balance",
	CategoryBugFix:        "bug_fixes",
	CategoryCoOp:          "coop",
	CategoryGeneral:       "general",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText encodes the category with its persisted name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a persisted category name.
func (c *Category) UnmarshalText(text []byte) error {
	for category, name := range categoryNames {
		if name == string(text) {
			*c = category
			return nil
		}
	}
	return fmt.Errorf("unknown section category %q", text)
}

// Balance reports whether changes in this category are versus balance content.
func (c Category) Balance() bool {
	return c == CategoryVersusBalance || c == CategoryGeneral || c == CategoryUnknown
}
