package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// CleanText applies NFKC normalization and collapses runs of whitespace
// (including non-breaking spaces) into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// Text returns the cleaned text content of sel.
func Text(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

// DirectText returns the cleaned text of sel's own text nodes, ignoring
// text inside child elements.
func DirectText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var sb strings.Builder
	for n := sel.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
	}
	return CleanText(sb.String())
}

// HeadingLevel returns 1-6 for h1-h6 elements and 0 for anything else.
func HeadingLevel(sel *goquery.Selection) int {
	name := goquery.NodeName(sel)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 0
}

// PrimaryHeadingLevel returns the shallowest heading level used inside
// content, or 0 when there are no headings.
func PrimaryHeadingLevel(content *goquery.Selection) int {
	primary := 0
	content.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if level := HeadingLevel(s); primary == 0 || level < primary {
			primary = level
		}
	})
	return primary
}

// IsWrapper reports whether sel is a layout container whose children
// should be visited in place of the element itself.
func IsWrapper(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "div", "section", "article", "main":
		return true
	}
	return false
}

// IsList reports whether sel is a ul or ol element.
func IsList(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "ul", "ol":
		return true
	}
	return false
}

// IsEmphasis reports whether sel is a strong or b element.
func IsEmphasis(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "strong", "b":
		return true
	}
	return false
}

// LeadingEmphasis returns the text of the first element child of sel when
// that child is a strong or b element.
func LeadingEmphasis(sel *goquery.Selection) (string, bool) {
	first := sel.Children().First()
	if first.Length() == 0 || !IsEmphasis(first) {
		return "", false
	}
	text := Text(first)
	return text, text != ""
}

// NestedList returns the first ul or ol that is a direct child of sel.
func NestedList(sel *goquery.Selection) *goquery.Selection {
	return sel.ChildrenFiltered("ul, ol").First()
}
