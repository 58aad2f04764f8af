package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coolbeans/sc2patches/pkg/extract"
)

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveDocument("blog", "direct-race-header", 20*time.Millisecond)
	m.ObserveDocument("blog", "direct-race-header", 5*time.Millisecond)
	m.ObserveTally(extract.Tally{Leaves: 5, Kept: 3, Dropped: map[string]int{extract.RuleUICosmetic: 2}})
	m.ObserveFailure("content_not_found")

	path := filepath.Join(t.TempDir(), "sc2patches.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		`sc2patches_documents_total{layout="blog",pattern="direct-race-header"} 2`,
		`sc2patches_changes_total{outcome="kept",rule=""} 3`,
		`sc2patches_changes_total{outcome="dropped",rule="ui-cosmetic"} 2`,
		`sc2patches_failures_total{reason="content_not_found"} 1`,
		`sc2patches_document_duration_seconds_count{pattern="direct-race-header"} 2`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q\n%s", want, text)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveDocument("wiki", "fallback", time.Second)
	m.ObserveTally(extract.Tally{Kept: 1})
	m.ObserveFailure("read")
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteTextfile() on nil = %v", err)
	}
	if m.Registry() != nil {
		t.Error("Registry() on nil should be nil")
	}
}
