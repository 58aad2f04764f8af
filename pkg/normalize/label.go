package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/section"
	"github.com/coolbeans/sc2patches/pkg/types"
)

const (
	// MaxLabelLength bounds heading and emphasized entity labels.
	MaxLabelLength = 50
	// MaxParagraphLabelLength bounds plain paragraph labels, which need a
	// tighter limit because ordinary prose also lives in paragraphs.
	MaxParagraphLabelLength = 30
	// MaxListDepth is the number of labelled list levels kept as nodes
	// (section > race > entity). Deeper labels flatten to changes.
	MaxListDepth = 3
)

// ClassifyLabel decides what a short heading or emphasized label opens.
// It returns false for text too long to be a label.
func ClassifyLabel(text string) (Kind, bool) {
	switch {
	case text == "":
		return 0, false
	case isRace(text):
		return KindRace, true
	case section.IsSectionHeader(text):
		return KindSection, true
	case utf8.RuneCountInString(text) < MaxLabelLength:
		return KindEntity, true
	}
	return 0, false
}

func isRace(text string) bool {
	_, ok := types.RaceFromName(text)
	return ok
}

// EmphasisLabel returns the label of a paragraph that holds nothing but an
// emphasized run, as in <p><b>Zergling</b></p>.
func EmphasisLabel(p *goquery.Selection) (string, bool) {
	label, ok := document.LeadingEmphasis(p)
	if !ok || label != document.Text(p) {
		return "", false
	}
	return label, true
}

// ParagraphLabel returns the text of a short plain paragraph that reads as
// a name rather than a sentence and is immediately followed by a list.
func ParagraphLabel(p *goquery.Selection) (string, bool) {
	text := document.Text(p)
	if text == "" || utf8.RuneCountInString(text) >= MaxParagraphLabelLength {
		return "", false
	}
	if strings.ContainsAny(text[len(text)-1:], ".!?") {
		return "", false
	}
	if !document.IsList(p.Next()) {
		return "", false
	}
	return text, true
}

// SplitRacePrefix detects a race name glued to the following word, a
// publisher formatting bug ("TerranWidow Mine ..."). It returns the race
// name as written and the remaining text.
func SplitRacePrefix(text string) (race, rest string, ok bool) {
	for _, faction := range types.PlayableRaces {
		title := faction.DisplayName()
		upper := strings.ToUpper(title)
		for _, name := range []string{title, upper} {
			if !strings.HasPrefix(text, name) {
				continue
			}
			remainder := text[len(name):]
			if gluedWord(remainder, name == upper) {
				return name, remainder, true
			}
		}
	}
	return "", "", false
}

// gluedWord reports whether s starts a new capitalized word. After an
// all-caps race name the word must continue in lower case, so "ZERGLING"
// is not split.
func gluedWord(s string, afterUpper bool) bool {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError || !unicode.IsUpper(first) {
		return false
	}
	if !afterUpper {
		return true
	}
	second, _ := utf8.DecodeRuneInString(s[size:])
	return unicode.IsLower(second)
}

// changeNode builds the leaf for one change, wrapping it in a race node
// when the text carries a glued race prefix.
func changeNode(text string) *Node {
	if race, rest, ok := SplitRacePrefix(text); ok {
		n := newNode(KindRace, race)
		n.add(newNode(KindChange, rest))
		return n
	}
	return newNode(KindChange, text)
}
