// Package store persists processed patches as one JSON file per version
// and indexes them for cross-patch queries.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/extract"
)

// ErrMissingVersion is returned when a patch without a version is written.
var ErrMissingVersion = errors.New("patch has no version")

// Patch is the persisted form of one processed patch-notes page.
type Patch struct {
	Metadata document.Metadata `json:"metadata"`
	Changes  []Change          `json:"changes"`
}

// Change is one persisted balance change.
type Change struct {
	// ID is "{version}-{index}", unique within the patch.
	ID           string `json:"id"`
	PatchVersion string `json:"patch_version"`
	EntityID     string `json:"entity_id"`
	RawText      string `json:"raw_text"`

	// SourceSection is the section category name, e.g. "versus/balance".
	SourceSection string `json:"source_section"`

	// ChangeType is filled by a classifier ("buff", "nerf", "mixed");
	// empty when none ran.
	ChangeType string `json:"change_type,omitempty"`
}

// NewPatch numbers changes in extraction order.
func NewPatch(meta document.Metadata, changes []extract.RawChange) *Patch {
	patch := &Patch{Metadata: meta, Changes: make([]Change, 0, len(changes))}
	for i, c := range changes {
		patch.Changes = append(patch.Changes, Change{
			ID:            fmt.Sprintf("%s-%d", meta.Version, i),
			PatchVersion:  meta.Version,
			EntityID:      c.EntityID,
			RawText:       c.Text,
			SourceSection: c.Category.String(),
		})
	}
	return patch
}

// FileName is the name a patch is stored under.
func FileName(version string) string {
	return version + ".json"
}

// Write stores patch as {dir}/{version}.json and returns the path.
func Write(dir string, patch *Patch) (string, error) {
	if strings.TrimSpace(patch.Metadata.Version) == "" {
		return "", ErrMissingVersion
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(patch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling patch %s: %w", patch.Metadata.Version, err)
	}

	path := filepath.Join(dir, FileName(patch.Metadata.Version))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing patch %s: %w", path, err)
	}
	return path, nil
}

// Read loads one patch file.
func Read(path string) (*Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}
	patch := &Patch{}
	if err := json.Unmarshal(data, patch); err != nil {
		return nil, fmt.Errorf("parsing patch %s: %w", path, err)
	}
	return patch, nil
}

// ReadDir loads every *.json patch in dir, ordered by version. Files that
// carry no version, such as a batch manifest, are not patches and are
// skipped.
func ReadDir(dir string) ([]*Patch, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	patches := make([]*Patch, 0, len(paths))
	for _, path := range paths {
		patch, err := Read(path)
		if err != nil {
			return nil, err
		}
		if patch.Metadata.Version == "" {
			continue
		}
		patches = append(patches, patch)
	}
	sort.SliceStable(patches, func(i, j int) bool {
		return CompareVersions(patches[i].Metadata.Version, patches[j].Metadata.Version) < 0
	})
	return patches, nil
}

// EntityChanges is the grouped view of one entity's changes in a patch.
type EntityChanges struct {
	EntityID string   `json:"entity_id"`
	Changes  []string `json:"changes"`
}

// Group collects each entity's change texts, entities in order of first
// appearance.
func Group(patch *Patch) []EntityChanges {
	var groups []EntityChanges
	index := make(map[string]int)
	for _, c := range patch.Changes {
		i, ok := index[c.EntityID]
		if !ok {
			i = len(groups)
			index[c.EntityID] = i
			groups = append(groups, EntityChanges{EntityID: c.EntityID})
		}
		groups[i].Changes = append(groups[i].Changes, c.RawText)
	}
	return groups
}
