package normalize

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/coolbeans/sc2patches/pkg/document"
)

// ElementHandler lets a layout parser take over a block element. It
// returns true when it consumed el; otherwise the default transition runs.
type ElementHandler func(b *Builder, el *goquery.Selection) bool

// Build normalizes a content container with the default transitions. It
// never fails; content without headings or lists yields an empty tree.
func Build(content *goquery.Selection) []*Node {
	b := NewBuilder(document.PrimaryHeadingLevel(content))
	b.Walk(content, nil)
	return b.Nodes()
}

// Walk feeds the block elements of content to the builder in document
// order, descending into wrapper elements.
func (b *Builder) Walk(content *goquery.Selection, handle ElementHandler) {
	content.Children().Each(func(_ int, el *goquery.Selection) {
		if handle != nil && handle(b, el) {
			return
		}
		b.Element(el, handle)
	})
}

// Element applies the default transition for one block element.
func (b *Builder) Element(el *goquery.Selection, handle ElementHandler) {
	switch {
	case document.IsWrapper(el):
		b.Walk(el, handle)
	case document.HeadingLevel(el) > 0:
		b.Heading(document.HeadingLevel(el), document.Text(el))
	case document.IsList(el):
		b.AddList(el)
	case goquery.NodeName(el) == "p":
		b.Paragraph(el)
	}
}

// Paragraph treats an emphasized-only paragraph or a short paragraph
// followed by a list as a label. Other paragraphs are prose and ignored.
func (b *Builder) Paragraph(p *goquery.Selection) {
	if label, ok := EmphasisLabel(p); ok {
		b.Label(label)
		return
	}
	if label, ok := ParagraphLabel(p); ok {
		b.Label(label)
	}
}
