package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexFind(t *testing.T) {
	index := NewIndex()
	index.Add(samplePatch("5.0.11", raw("zerg-hydralisk", "Range increased."), raw("terran-marine", "Health increased.")))
	index.Add(samplePatch("4.10.0", raw("zerg-hydralisk", "Cost reduced.")))

	history := index.Find("zerg-hydralisk", "")
	require.Len(t, history, 2)
	assert.Equal(t, "4.10.0", history[0].PatchVersion)
	assert.Equal(t, "5.0.11", history[1].PatchVersion)

	assert.Len(t, index.Find("", "5.0.11"), 2)
	assert.Len(t, index.Find("terran-marine", "4.10.0"), 0)
	assert.Len(t, index.Find("", ""), 3)
	assert.Equal(t, []string{"4.10.0", "5.0.11"}, index.Versions())
	assert.Equal(t, []string{"terran-marine", "zerg-hydralisk"}, index.Entities())
}

func TestIndexReplaceAndRemove(t *testing.T) {
	index := NewIndex()
	index.Add(samplePatch("5.0.11", raw("terran-marine", "Health increased.")))
	index.Add(samplePatch("5.0.11", raw("zerg-queen", "Range reduced.")))

	assert.Empty(t, index.Find("terran-marine", ""))
	assert.Len(t, index.Find("zerg-queen", ""), 1)

	index.Remove("5.0.11")
	assert.Empty(t, index.Versions())
	assert.Empty(t, index.Entities())
}

func TestIndexStats(t *testing.T) {
	index := NewIndex()
	patch := samplePatch("5.0.11",
		raw("zerg-hydralisk", "Range increased."),
		raw("zerg-hydralisk", "Cost reduced."),
		raw("terran-marine", "Health increased."),
	)
	patch.Changes[0].ChangeType = "buff"
	index.Add(patch)

	stats := index.Stats(1)
	assert.Equal(t, 1, stats.Patches)
	assert.Equal(t, 3, stats.Changes)
	assert.Equal(t, 2, stats.Entities)
	assert.Equal(t, map[string]int{"versus/balance": 3}, stats.SectionCounts)
	assert.Equal(t, map[string]int{"buff": 1}, stats.ChangeTypes)
	assert.Equal(t, []EntityCount{{EntityID: "zerg-hydralisk", Changes: 2}}, stats.TopEntities)
}

func TestLoadIndex(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, samplePatch("5.0.11", raw("zerg-hydralisk", "Range increased.")))
	require.NoError(t, err)

	index, err := LoadIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"5.0.11"}, index.Versions())
}

func TestIndexConcurrentAccess(t *testing.T) {
	index := NewIndex()
	var wg sync.WaitGroup
	for _, version := range []string{"5.0.1", "5.0.2", "5.0.3", "5.0.4"} {
		wg.Add(1)
		go func(version string) {
			defer wg.Done()
			index.Add(samplePatch(version, raw("zerg-queen", "Range reduced.")))
			_ = index.Find("zerg-queen", "")
		}(version)
	}
	wg.Wait()

	assert.Len(t, index.Find("zerg-queen", ""), 4)
}
