// Package document locates the main content of a patch-notes page and
// provides the small set of DOM helpers shared by the layout parsers.
package document

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrContentNotFound is returned when a page has no recognizable main
// content container, which usually means it is not a patch-notes page.
var ErrContentNotFound = errors.New("main content container not found")

// Layout identifies which publisher template a page was rendered with.
type Layout string

const (
	// LayoutBlog is the publisher's news page, content under section.blog.
	LayoutBlog Layout = "blog"
	// LayoutWiki is the MediaWiki mirror, content under div.mw-parser-output.
	LayoutWiki Layout = "wiki"
)

// containers lists the content selectors in lookup order.
var containers = []struct {
	selector string
	layout   Layout
}{
	{"section.blog", LayoutBlog},
	{"div.mw-parser-output", LayoutWiki},
}

// wikiClutter is removed from wiki content before normalization.
const wikiClutter = "script, style, nav, .mw-editsection, .navbox, .toc, .noprint, table.infobox"

// Document is a parsed page with its content container located.
type Document struct {
	Layout   Layout
	Metadata Metadata

	root    *goquery.Document
	content *goquery.Selection
}

// Parse reads an HTML page and locates its main content container.
func Parse(r io.Reader) (*Document, error) {
	root, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return FromGoquery(root)
}

// ParseString is a convenience wrapper around Parse.
func ParseString(html string) (*Document, error) {
	return Parse(strings.NewReader(html))
}

// FromGoquery wraps an already parsed page.
func FromGoquery(root *goquery.Document) (*Document, error) {
	doc := &Document{root: root}
	doc.Metadata = extractMetadata(root.Selection)

	for _, c := range containers {
		sel := root.Find(c.selector).First()
		if sel.Length() == 0 {
			continue
		}
		doc.Layout = c.layout
		doc.content = sel
		break
	}
	if doc.content == nil {
		return nil, ErrContentNotFound
	}

	if doc.Layout == LayoutWiki {
		cleanWiki(doc.content)
	}
	doc.content.Find("script, style").Remove()
	return doc, nil
}

// cleanWiki strips MediaWiki chrome and unwraps the div.mw-heading
// wrappers newer MediaWiki versions put around every heading.
func cleanWiki(content *goquery.Selection) {
	content.Find(wikiClutter).Remove()
	content.Find("div.mw-heading").Each(func(_ int, s *goquery.Selection) {
		if s.Contents().Length() == 0 {
			s.Remove()
			return
		}
		s.Contents().Unwrap()
	})
}

// Content returns the main content container.
func (d *Document) Content() *goquery.Selection {
	return d.content
}

// Root returns the whole parsed page.
func (d *Document) Root() *goquery.Document {
	return d.root
}
