package pattern

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/normalize"
	"github.com/coolbeans/sc2patches/pkg/types"
)

// Parse builds the normalized tree of content with the parser for tag.
func Parse(tag Tag, content *goquery.Selection) []*normalize.Node {
	primary := document.PrimaryHeadingLevel(content)
	switch tag {
	case DirectRaceHeader:
		return parseDirectRaceHeader(content, primary)
	case NestedRaceHeader:
		return parseNestedRaceHeader(content, primary)
	case LabelBeforeList:
		return parseLabelBeforeList(content, primary)
	case NestedEmphasis:
		return parseNestedEmphasis(content, primary)
	default:
		return normalize.Build(content)
	}
}

// Normalize detects the layout of content and parses it.
func Normalize(content *goquery.Selection) (Tag, []*normalize.Node) {
	tag := Detect(content)
	return tag, Parse(tag, content)
}

// parseDirectRaceHeader handles pages built only from headings and lists:
//
//	<h2>Zerg</h2>
//	<ul><li>Hydralisk range increased by 1.</li></ul>
//
// Paragraphs there are commentary, never labels.
func parseDirectRaceHeader(content *goquery.Selection, primary int) []*normalize.Node {
	b := normalize.NewBuilder(primary)
	b.Walk(content, func(_ *normalize.Builder, el *goquery.Selection) bool {
		return goquery.NodeName(el) == "p"
	})
	return b.Nodes()
}

// parseNestedRaceHeader handles a section heading with race headings one
// level below it and entity names in deeper headings or bold paragraphs:
//
//	<h2>Balance Update</h2>
//	<h3>Zerg</h3>
//	<p><b>Zergling</b></p>
//	<ul><li>...</li></ul>
func parseNestedRaceHeader(content *goquery.Selection, primary int) []*normalize.Node {
	b := normalize.NewBuilder(primary)
	b.Walk(content, func(b *normalize.Builder, el *goquery.Selection) bool {
		if level := document.HeadingLevel(el); level > 0 {
			text := document.Text(el)
			switch {
			case text == "":
			case isRace(text) && level <= primary:
				b.OpenTopRace(text)
			case isRace(text):
				b.OpenRace(text)
			case level <= primary:
				b.OpenSection(text)
			default:
				if !b.Label(text) {
					b.CloseEntity()
				}
			}
			return true
		}
		if goquery.NodeName(el) == "p" {
			if label, ok := normalize.EmphasisLabel(el); ok {
				b.Label(label)
			}
			return true
		}
		return false
	})
	return b.Nodes()
}

// parseLabelBeforeList handles plain paragraphs naming the entity of the
// list that follows:
//
//	<p>Thor</p>
//	<ul><li>...</li></ul>
func parseLabelBeforeList(content *goquery.Selection, primary int) []*normalize.Node {
	b := normalize.NewBuilder(primary)
	b.Walk(content, func(b *normalize.Builder, el *goquery.Selection) bool {
		if goquery.NodeName(el) != "p" {
			return false
		}
		if label, ok := normalize.EmphasisLabel(el); ok {
			b.Label(label)
		} else if label, ok := normalize.ParagraphLabel(el); ok {
			b.Label(label)
		}
		return true
	})
	return b.Nodes()
}

// parseNestedEmphasis handles lists whose items carry an emphasized label
// and a nested list, optionally below race or section headings:
//
//	<h3>TERRAN</h3>
//	<ul><li><strong>Widow Mine</strong><ul><li>...</li></ul></li></ul>
func parseNestedEmphasis(content *goquery.Selection, primary int) []*normalize.Node {
	b := normalize.NewBuilder(primary)
	b.Walk(content, func(b *normalize.Builder, el *goquery.Selection) bool {
		if level := document.HeadingLevel(el); level > 0 {
			text := document.Text(el)
			switch {
			case text == "":
			case isRace(text) && level <= primary:
				b.OpenTopRace(text)
			case isRace(text):
				b.OpenRace(text)
			default:
				b.OpenSection(text)
			}
			return true
		}
		return goquery.NodeName(el) == "p"
	})
	return b.Nodes()
}

func isRace(text string) bool {
	_, ok := types.RaceFromName(text)
	return ok
}
