package pattern

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/normalize"
	"github.com/coolbeans/sc2patches/pkg/types"
)

// maxExamples bounds the sample texts kept per indicator.
const maxExamples = 3

// Indicator is the outcome of one layout check.
type Indicator struct {
	Tag      Tag
	Check    string
	Matches  int
	Examples []string
}

// Detection explains how a tag was chosen.
type Detection struct {
	Tag          Tag
	PrimaryLevel int
	Indicators   []Indicator
}

// String returns a one-line summary.
func (d Detection) String() string {
	for _, ind := range d.Indicators {
		if ind.Tag == d.Tag {
			return fmt.Sprintf("%s (%d matches)", d.Tag, ind.Matches)
		}
	}
	return d.Tag.String()
}

// DebugString returns every check with its match count and examples.
func (d Detection) DebugString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Layout: %s\n", d.Tag))
	if d.PrimaryLevel > 0 {
		sb.WriteString(fmt.Sprintf("  Primary heading: h%d\n", d.PrimaryLevel))
	} else {
		sb.WriteString("  Primary heading: none\n")
	}
	sb.WriteString("  Checks:\n")
	for _, ind := range d.Indicators {
		marker := " "
		if ind.Tag == d.Tag {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("  %s [%s] %s: %d\n", marker, ind.Tag, ind.Check, ind.Matches))
		for _, ex := range ind.Examples {
			sb.WriteString(fmt.Sprintf("        %q\n", truncate(ex, 60)))
		}
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// Detect picks the layout of a content container. Checks run in a fixed
// order and the first one with a match wins.
func Detect(content *goquery.Selection) Tag {
	return Explain(content).Tag
}

// Explain runs every layout check and records what each one saw.
func Explain(content *goquery.Selection) Detection {
	primary := document.PrimaryHeadingLevel(content)
	d := Detection{
		Tag:          Fallback,
		PrimaryLevel: primary,
		Indicators: []Indicator{
			raceHeadings(content, DirectRaceHeader, primary, "race headings at the primary level"),
			raceHeadings(content, NestedRaceHeader, primary+1, "race headings one level below primary"),
			paragraphLabels(content),
			emphasizedItems(content),
		},
	}
	for _, ind := range d.Indicators {
		if ind.Matches > 0 {
			d.Tag = ind.Tag
			break
		}
	}
	return d
}

func (ind *Indicator) record(text string) {
	ind.Matches++
	if len(ind.Examples) < maxExamples {
		ind.Examples = append(ind.Examples, text)
	}
}

func raceHeadings(content *goquery.Selection, tag Tag, level int, check string) Indicator {
	ind := Indicator{Tag: tag, Check: check}
	if level < 1 || level > 6 {
		return ind
	}
	content.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, h *goquery.Selection) {
		text := document.Text(h)
		if _, ok := types.RaceFromName(text); ok {
			ind.record(text)
		}
	})
	return ind
}

func paragraphLabels(content *goquery.Selection) Indicator {
	ind := Indicator{Tag: LabelBeforeList, Check: "short paragraph labels followed by a list"}
	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		if label, ok := normalize.ParagraphLabel(p); ok {
			ind.record(label)
		}
	})
	return ind
}

func emphasizedItems(content *goquery.Selection) Indicator {
	ind := Indicator{Tag: NestedEmphasis, Check: "emphasized list items with a nested list"}
	content.Find("li").Each(func(_ int, li *goquery.Selection) {
		label, ok := document.LeadingEmphasis(li)
		if ok && document.NestedList(li).Length() > 0 {
			ind.record(label)
		}
	})
	return ind
}
