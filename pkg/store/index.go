package store

import (
	"sort"
	"sync"
)

// IndexStats summarizes an Index.
type IndexStats struct {
	Patches       int            `json:"patches"`
	Changes       int            `json:"changes"`
	Entities      int            `json:"entities"`
	SectionCounts map[string]int `json:"section_counts"`
	ChangeTypes   map[string]int `json:"change_types"`
	TopEntities   []EntityCount  `json:"top_entities"`
}

// EntityCount is one entity's number of changes.
type EntityCount struct {
	EntityID string `json:"entity_id"`
	Changes  int    `json:"changes"`
}

// Index is an in-memory view of many patches with two indexes:
//   - entity -> version -> changes (an entity's history)
//   - version -> changes (one patch)
//
// It is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	byEntity  map[string]map[string][]Change
	byVersion map[string][]Change
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byEntity:  make(map[string]map[string][]Change),
		byVersion: make(map[string][]Change),
	}
}

// LoadIndex indexes every patch file in dir.
func LoadIndex(dir string) (*Index, error) {
	patches, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}
	index := NewIndex()
	for _, patch := range patches {
		index.Add(patch)
	}
	return index, nil
}

// Add indexes patch, replacing any patch already indexed under its version.
func (ix *Index) Add(patch *Patch) {
	version := patch.Metadata.Version

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeUnsafe(version)
	changes := make([]Change, len(patch.Changes))
	copy(changes, patch.Changes)
	ix.byVersion[version] = changes

	for _, c := range changes {
		if ix.byEntity[c.EntityID] == nil {
			ix.byEntity[c.EntityID] = make(map[string][]Change)
		}
		ix.byEntity[c.EntityID][version] = append(ix.byEntity[c.EntityID][version], c)
	}
}

// Remove drops the patch indexed under version.
func (ix *Index) Remove(version string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeUnsafe(version)
}

func (ix *Index) removeUnsafe(version string) {
	for _, c := range ix.byVersion[version] {
		versions := ix.byEntity[c.EntityID]
		delete(versions, version)
		if len(versions) == 0 {
			delete(ix.byEntity, c.EntityID)
		}
	}
	delete(ix.byVersion, version)
}

// Find returns the changes matching entityID and version. An empty
// argument is a wildcard. Results are ordered by version, then by
// position in the patch.
func (ix *Index) Find(entityID, version string) []Change {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var result []Change
	switch {
	case entityID != "" && version != "":
		result = append(result, ix.byEntity[entityID][version]...)
	case entityID != "":
		for _, v := range sortedVersions(ix.byEntity[entityID]) {
			result = append(result, ix.byEntity[entityID][v]...)
		}
	case version != "":
		result = append(result, ix.byVersion[version]...)
	default:
		for _, v := range sortedVersions(ix.byVersion) {
			result = append(result, ix.byVersion[v]...)
		}
	}
	return result
}

// Versions returns the indexed versions in ascending order.
func (ix *Index) Versions() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedVersions(ix.byVersion)
}

// Entities returns every entity id with at least one change, sorted.
func (ix *Index) Entities() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]string, 0, len(ix.byEntity))
	for id := range ix.byEntity {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats counts changes by section and change type and lists the top
// entities by number of changes.
func (ix *Index) Stats(top int) IndexStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	stats := IndexStats{
		Patches:       len(ix.byVersion),
		Entities:      len(ix.byEntity),
		SectionCounts: make(map[string]int),
		ChangeTypes:   make(map[string]int),
	}
	for _, changes := range ix.byVersion {
		stats.Changes += len(changes)
		for _, c := range changes {
			stats.SectionCounts[c.SourceSection]++
			if c.ChangeType != "" {
				stats.ChangeTypes[c.ChangeType]++
			}
		}
	}

	counts := make([]EntityCount, 0, len(ix.byEntity))
	for id, versions := range ix.byEntity {
		n := 0
		for _, changes := range versions {
			n += len(changes)
		}
		counts = append(counts, EntityCount{EntityID: id, Changes: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Changes != counts[j].Changes {
			return counts[i].Changes > counts[j].Changes
		}
		return counts[i].EntityID < counts[j].EntityID
	})
	if top >= 0 && len(counts) > top {
		counts = counts[:top]
	}
	stats.TopEntities = counts
	return stats
}

func sortedVersions[V any](m map[string]V) []string {
	versions := make([]string, 0, len(m))
	for v := range m {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
	return versions
}
