package pattern

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/normalize"
)

func node(kind normalize.Kind, text string, children ...*normalize.Node) *normalize.Node {
	return &normalize.Node{Kind: kind, Text: text, Children: children}
}

func sec(text string, children ...*normalize.Node) *normalize.Node {
	return node(normalize.KindSection, text, children...)
}

func race(text string, children ...*normalize.Node) *normalize.Node {
	return node(normalize.KindRace, text, children...)
}

func ent(text string, children ...*normalize.Node) *normalize.Node {
	return node(normalize.KindEntity, text, children...)
}

func chg(text string) *normalize.Node {
	return node(normalize.KindChange, text)
}

func content(t *testing.T, body string) *goquery.Selection {
	t.Helper()
	doc, err := document.ParseString(`<section class="blog">` + body + `</section>`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return doc.Content()
}

var layoutCases = []struct {
	name string
	html string
	tag  Tag
	want []*normalize.Node
}{
	{
		name: "direct race header",
		html: `
<h2>Zerg</h2>
<p>We want to help Zerg in the late game.</p>
<ul><li>Hydralisk range increased by 1</li></ul>
<h2>Protoss</h2>
<ul><li>Stalker Blink cooldown increased.</li></ul>
<h2>Bug Fixes</h2>
<ul><li>Fixed an issue where the Zerg race icon was missing.</li></ul>`,
		tag: DirectRaceHeader,
		want: []*normalize.Node{
			race("Zerg", chg("Hydralisk range increased by 1")),
			race("Protoss", chg("Stalker Blink cooldown increased.")),
			sec("Bug Fixes", chg("Fixed an issue where the Zerg race icon was missing.")),
		},
	},
	{
		name: "nested race header",
		html: `
<h2>Balance Update</h2>
<h3>Zerg</h3>
<p><b>Zergling</b></p>
<ul><li>Movement speed increased.</li></ul>
<h3>Protoss</h3>
<h4>Stalker</h4>
<ul><li>Blink cooldown increased.</li></ul>`,
		tag: NestedRaceHeader,
		want: []*normalize.Node{
			sec("Balance Update",
				race("Zerg", ent("Zergling", chg("Movement speed increased."))),
				race("Protoss", ent("Stalker", chg("Blink cooldown increased."))),
			),
		},
	},
	{
		name: "label before list",
		html: `
<p>These are the changes coming with this patch.</p>
<p>Thor</p>
<ul><li>Armor increased.</li></ul>
<p>Raven</p>
<ul><li>Energy reduced.</li></ul>`,
		tag: LabelBeforeList,
		want: []*normalize.Node{
			ent("Thor", chg("Armor increased.")),
			ent("Raven", chg("Energy reduced.")),
		},
	},
	{
		name: "nested emphasis",
		html: `
<h2>Balance Changes</h2>
<ul>
 <li><strong>Terran</strong>
  <ul><li><strong>Widow Mine</strong><ul><li>Damage reduced.</li></ul></li></ul>
 </li>
</ul>
<h2>General</h2>
<ul><li><strong>Units</strong><ul><li>ProtossStalker range increased.</li></ul></li></ul>`,
		tag: NestedEmphasis,
		want: []*normalize.Node{
			sec("Balance Changes", race("Terran", ent("Widow Mine", chg("Damage reduced.")))),
			sec("General", ent("Units", race("Protoss", chg("Stalker range increased.")))),
		},
	},
	{
		name: "no structure",
		html: `<p>Welcome to the patch.</p><p>Thanks for playing!</p>`,
		tag:  Fallback,
		want: nil,
	},
}

func TestDetect(t *testing.T) {
	for _, tc := range layoutCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(content(t, tc.html)); got != tc.tag {
				t.Errorf("Detect() = %v, want %v", got, tc.tag)
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, tc := range layoutCases {
		t.Run(tc.name, func(t *testing.T) {
			tag, got := Normalize(content(t, tc.html))
			if tag != tc.tag {
				t.Fatalf("Normalize() tag = %v, want %v", tag, tc.tag)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsersKeepChangesAsLeaves(t *testing.T) {
	for _, tc := range layoutCases {
		for _, tag := range Tags {
			nodes := Parse(tag, content(t, tc.html))
			normalize.Walk(nodes, func(n *normalize.Node, _ int) bool {
				if n.Kind == normalize.KindChange && len(n.Children) > 0 {
					t.Errorf("%s/%s: change %q has children", tc.name, tag, n.Text)
				}
				return true
			})
		}
	}
}

func TestDetectOrder(t *testing.T) {
	html := `
<h2>Terran</h2>
<ul><li><strong>Widow Mine</strong><ul><li>Damage reduced.</li></ul></li></ul>
<p>Thor</p>
<ul><li>Armor increased.</li></ul>`

	d := Explain(content(t, html))
	if d.Tag != DirectRaceHeader {
		t.Errorf("Explain().Tag = %v, want %v", d.Tag, DirectRaceHeader)
	}

	matches := map[Tag]int{}
	for _, ind := range d.Indicators {
		matches[ind.Tag] = ind.Matches
	}
	want := map[Tag]int{DirectRaceHeader: 1, NestedRaceHeader: 0, LabelBeforeList: 1, NestedEmphasis: 1}
	if diff := cmp.Diff(want, matches); diff != "" {
		t.Errorf("indicator matches mismatch (-want +got):\n%s", diff)
	}
}

func TestParseForcedFallback(t *testing.T) {
	c := content(t, layoutCases[1].html)
	if diff := cmp.Diff(normalize.Build(c), Parse(Fallback, c)); diff != "" {
		t.Errorf("Parse(Fallback) differs from normalize.Build (-want +got):\n%s", diff)
	}
}

func TestDetectionStrings(t *testing.T) {
	d := Explain(content(t, layoutCases[1].html))

	if got := d.String(); got != "nested-race-header (2 matches)" {
		t.Errorf("String() = %q", got)
	}

	debug := d.DebugString()
	for _, want := range []string{
		"Layout: nested-race-header",
		"Primary heading: h2",
		"* [nested-race-header]",
		`"Zerg"`,
	} {
		if !strings.Contains(debug, want) {
			t.Errorf("DebugString() missing %q:\n%s", want, debug)
		}
	}

	fallback := Explain(content(t, `<p>Nothing here.</p>`))
	if got := fallback.String(); got != "fallback" {
		t.Errorf("fallback String() = %q", got)
	}
	if !strings.Contains(fallback.DebugString(), "Primary heading: none") {
		t.Errorf("fallback DebugString() = %s", fallback.DebugString())
	}
}

func TestParseTag(t *testing.T) {
	for _, tag := range Tags {
		got, err := ParseTag(tag.String())
		if err != nil || got != tag {
			t.Errorf("ParseTag(%q) = %v, %v", tag.String(), got, err)
		}
	}
	if _, err := ParseTag("h3_race"); err == nil {
		t.Error("ParseTag() should reject unknown names")
	}
}
