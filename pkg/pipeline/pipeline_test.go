package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/coolbeans/sc2patches/pkg/catalog"
	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/extract"
	"github.com/coolbeans/sc2patches/pkg/metrics"
	"github.com/coolbeans/sc2patches/pkg/pattern"
	"github.com/coolbeans/sc2patches/pkg/store"
	"github.com/coolbeans/sc2patches/pkg/types"
)

const blogPage = `<html><head>
<title>StarCraft II 5.0.11 Patch Notes - News</title>
<meta property="og:url" content="https://news.blizzard.com/en-us/starcraft2/23910961/starcraft-ii-5-0-11-patch-notes">
<script type="application/ld+json">{"@context":"http://schema.org","@type":"NewsArticle",
"headline":"StarCraft II 5.0.11 Patch Notes","datePublished":"2023-01-24T18:00:00+00:00",
"author":[{"@type":"Person","name":"Blizzard"}] "publisher":{"@type":"Organization","name":"Blizzard"}}</script>
</head><body><section class="blog">
<h2>Balance Update</h2>
<h3>Zerg</h3>
<ul><li>Hydralisk range increased by 1.</li><li>Updated the Hydralisk icon.</li></ul>
<h3>Terran</h3>
<ul><li>Widow Mine damage reduced from 125 to 100.</li></ul>
<h2>Bug Fixes</h2>
<ul><li>Fixed an issue where the Marine could not attack.</li></ul>
</section></body></html>`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Entity{
		{ID: "terran-marine", Name: "Marine", Faction: types.FactionTerran, Kind: types.KindUnit},
		{ID: "terran-widow_mine", Name: "Widow Mine", Faction: types.FactionTerran, Kind: types.KindUnit},
		{ID: "zerg-hydralisk", Name: "Hydralisk", Faction: types.FactionZerg, Kind: types.KindUnit},
		{ID: "zerg-grooved_spines", Name: "Grooved Spines", Faction: types.FactionZerg, Kind: types.KindUpgrade},
	})
	require.NoError(t, err)
	return cat
}

func TestProcess(t *testing.T) {
	result, err := New(testCatalog(t)).Process(context.Background(), strings.NewReader(blogPage), Source{})
	require.NoError(t, err)

	assert.Equal(t, document.LayoutBlog, result.Layout)
	assert.Equal(t, pattern.NestedRaceHeader, result.Tag)
	assert.Equal(t, document.Metadata{
		Title:   "StarCraft II 5.0.11 Patch Notes",
		Version: "5.0.11",
		Date:    "2023-01-24",
		URL:     "https://news.blizzard.com/en-us/starcraft2/23910961/starcraft-ii-5-0-11-patch-notes",
	}, result.Patch.Metadata)

	assert.Equal(t, []store.Change{
		{ID: "5.0.11-0", PatchVersion: "5.0.11", EntityID: "zerg-hydralisk", RawText: "Hydralisk range increased by 1.", SourceSection: "versus/balance"},
		{ID: "5.0.11-1", PatchVersion: "5.0.11", EntityID: "terran-widow_mine", RawText: "Widow Mine damage reduced from 125 to 100.", SourceSection: "versus/balance"},
	}, result.Patch.Changes)

	assert.Equal(t, 4, result.Tally.Leaves)
	assert.Equal(t, 2, result.Tally.Kept)
	assert.Equal(t, map[string]int{extract.RuleUICosmetic: 1, extract.RuleBugFixPhrasing: 1}, result.Tally.Dropped)
}

func TestProcessContentNotFound(t *testing.T) {
	m := metrics.New()
	_, err := New(testCatalog(t), WithMetrics(m)).Process(context.Background(),
		strings.NewReader("<html><body><p>Nothing here</p></body></html>"), Source{Path: "empty.html"})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrContentNotFound)
	assert.Contains(t, err.Error(), "empty.html")
}

func TestProcessOverridesAndFallbacks(t *testing.T) {
	page := `<html><body><section class="blog"><h2>Zerg</h2><ul><li>Hydralisk cost reduced.</li></ul></section></body></html>`

	tests := []struct {
		name        string
		src         Source
		wantVersion string
		wantURL     string
	}{
		{"version from path", Source{Path: "data/raw_html/starcraft-ii-4-11-4.html"}, "4.11.4", ""},
		{"version from url", Source{URL: "https://example.com/starcraft-ii-5-0-12-patch-notes"}, "5.0.12", "https://example.com/starcraft-ii-5-0-12-patch-notes"},
		{"explicit version", Source{Path: "starcraft-ii-4-11-4.html", Version: "4.11.5"}, "4.11.5", ""},
		{"nothing known", Source{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New(testCatalog(t)).Process(context.Background(), strings.NewReader(page), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, result.Patch.Metadata.Version)
			assert.Equal(t, tt.wantURL, result.Patch.Metadata.URL)
			require.Len(t, result.Patch.Changes, 1)
			assert.Equal(t, tt.wantVersion+"-0", result.Patch.Changes[0].ID)
		})
	}
}

func TestProcessWithPolicy(t *testing.T) {
	cat := testCatalog(t)
	policy, err := catalog.ParsePolicy(strings.NewReader("regroup:\n  - child: zerg-grooved_spines\n    parent: zerg-hydralisk\n"), cat)
	require.NoError(t, err)

	page := `<section class="blog"><h2>Zerg</h2><ul><li>Grooved Spines research time reduced.</li></ul></section>`
	result, err := New(cat, WithPolicy(policy)).Process(context.Background(), strings.NewReader(page), Source{Version: "5.0.11"})
	require.NoError(t, err)
	require.Len(t, result.Patch.Changes, 1)
	assert.Equal(t, "zerg-hydralisk", result.Patch.Changes[0].EntityID)
	assert.Equal(t, "[Grooved Spines] Grooved Spines research time reduced.", result.Patch.Changes[0].RawText)
}

func TestProcessWithClassifier(t *testing.T) {
	classifier := ClassifierFunc(func(_ context.Context, patch *store.Patch) ([]string, error) {
		labels := make([]string, len(patch.Changes))
		for i, c := range patch.Changes {
			if strings.Contains(c.RawText, "increased") {
				labels[i] = ChangeBuff
			} else {
				labels[i] = ChangeNerf
			}
		}
		return labels, nil
	})

	result, err := New(testCatalog(t), WithClassifier(classifier)).Process(context.Background(), strings.NewReader(blogPage), Source{})
	require.NoError(t, err)
	assert.Equal(t, ChangeBuff, result.Patch.Changes[0].ChangeType)
	assert.Equal(t, ChangeNerf, result.Patch.Changes[1].ChangeType)
}

func TestProcessClassifierErrors(t *testing.T) {
	failing := ClassifierFunc(func(context.Context, *store.Patch) ([]string, error) {
		return nil, errors.New("quota exceeded")
	})
	short := ClassifierFunc(func(context.Context, *store.Patch) ([]string, error) {
		return []string{ChangeBuff}, nil
	})

	_, err := New(testCatalog(t), WithClassifier(failing)).Process(context.Background(), strings.NewReader(blogPage), Source{})
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = New(testCatalog(t), WithClassifier(short)).Process(context.Background(), strings.NewReader(blogPage), Source{})
	assert.ErrorIs(t, err, ErrClassifierMismatch)
}

func TestProcessForcedPattern(t *testing.T) {
	result, err := New(testCatalog(t), WithPattern(pattern.Fallback)).Process(context.Background(), strings.NewReader(blogPage), Source{})
	require.NoError(t, err)
	assert.Equal(t, pattern.Fallback, result.Tag)
	assert.Len(t, result.Patch.Changes, 2)
}

func TestProcessLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	_, err := New(testCatalog(t), WithLogger(zap.New(core))).Process(context.Background(), strings.NewReader(blogPage), Source{Path: "5.0.11.html"})
	require.NoError(t, err)

	assert.Equal(t, 2, logs.FilterMessage("dropped change").Len())
	processed := logs.FilterMessage("processed page").All()
	require.Len(t, processed, 1)
	assert.Equal(t, int64(2), processed[0].ContextMap()["changes"])
	assert.Equal(t, "5.0.11.html", processed[0].ContextMap()["source"])
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starcraft-ii-5-0-11.html")
	require.NoError(t, os.WriteFile(path, []byte(blogPage), 0o644))

	result, err := New(testCatalog(t)).ProcessFile(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "5.0.11", result.Patch.Metadata.Version)

	_, err = New(testCatalog(t)).ProcessFile(context.Background(), Source{Path: filepath.Join(t.TempDir(), "missing.html")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
