package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var dataFlags = []string{
	"--catalog", filepath.Join("..", "..", "data", "entities.json"),
	"--policy", filepath.Join("..", "..", "data", "attribution.yaml"),
	"--log-level", "error",
}

const testPage = `<html><head><title>StarCraft II Patch 5.0.11</title></head><body>
<section class="blog">
  <h2>Zerg</h2>
  <ul>
    <li>Hydralisk range increased by 1.</li>
    <li>Grooved Spines research time reduced.</li>
  </ul>
</section></body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, dataFlags...))
	err := cmd.Execute()
	return out.String(), err
}

func writeTestPage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patch-5-0-11.html")
	if err := os.WriteFile(path, []byte(testPage), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	out, err := execute(t, "parse", "--file", writeTestPage(t))
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	for _, want := range []string{
		`"version": "5.0.11"`,
		`"entity_id": "zerg-hydralisk"`,
		`"raw_text": "[Grooved Spines] Grooved Spines research time reduced."`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestParseRequiresFile(t *testing.T) {
	if _, err := execute(t, "parse"); err == nil || !strings.Contains(err.Error(), "--file") {
		t.Errorf("parse without --file error = %v", err)
	}
}

func TestDetectCommand(t *testing.T) {
	out, err := execute(t, "detect", "--file", writeTestPage(t))
	if err != nil {
		t.Fatalf("detect error = %v", err)
	}
	if !strings.Contains(out, "direct-race-header") {
		t.Errorf("detect output = %q, want direct-race-header", out)
	}
}

func TestHistoryAndStats(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "parse", "--file", writeTestPage(t), "--output", dir); err != nil {
		t.Fatalf("parse --output error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "5.0.11.json")); err != nil {
		t.Fatalf("patch file not written: %v", err)
	}

	out, err := execute(t, "history", "zerg-hydralisk", "--output-dir", dir)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "5.0.11") || !strings.Contains(out, "Hydralisk range increased by 1.") {
		t.Errorf("history output:\n%s", out)
	}

	out, err = execute(t, "stats", "--output-dir", dir)
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(out, "Patches:  1") || !strings.Contains(out, "Changes:  2") {
		t.Errorf("stats output:\n%s", out)
	}

	if _, err := execute(t, "history", "terran-marine", "--output-dir", dir); err == nil {
		t.Error("history of an unchanged entity should fail")
	}
}

func TestCatalogList(t *testing.T) {
	out, err := execute(t, "catalog", "list", "--faction", "zerg")
	if err != nil {
		t.Fatalf("catalog list error = %v", err)
	}
	if !strings.Contains(out, "zerg-hydralisk") || strings.Contains(out, "terran-marine") {
		t.Errorf("catalog list output:\n%s", out)
	}
	if !strings.Contains(out, "zerg-grooved_spines") || !strings.Contains(out, "-> zerg-hydralisk") {
		t.Errorf("catalog list should show regrouped parents:\n%s", out)
	}
}
