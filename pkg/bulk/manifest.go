package bulk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const manifestVersion = "1.0.0"

// ManifestFileName is the manifest's name inside the output directory.
const ManifestFileName = "manifest.json"

// Manifest remembers which page content produced which patch file, so
// unchanged pages are skipped on the next run. It is safe for concurrent use.
type Manifest struct {
	mu sync.Mutex

	Version   string             `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
	Entries   map[string]*Record `json:"entries"`
}

// Record describes the last successful processing of one page.
type Record struct {
	// Source is the page path relative to the HTML directory.
	Source string `json:"source"`

	// ContentHash is the cache key of the page content.
	ContentHash string `json:"content_hash"`

	PatchVersion string    `json:"patch_version"`
	OutputPath   string    `json:"output_path"`
	Changes      int       `json:"changes"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version:   manifestVersion,
		UpdatedAt: time.Now().UTC(),
		Entries:   make(map[string]*Record),
	}
}

// LoadManifest reads a manifest, returning an empty one when the file does
// not exist yet.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	manifest := &Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if manifest.Entries == nil {
		manifest.Entries = make(map[string]*Record)
	}
	return manifest, nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdatedAt = time.Now().UTC()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Put records a processed page, replacing any earlier record for it.
func (m *Manifest) Put(record *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[record.Source] = record
}

// Get returns the record for source, or nil.
func (m *Manifest) Get(source string) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Entries[source]
}

// Fresh reports whether source was last processed from content with the
// given hash and its output file still exists.
func (m *Manifest) Fresh(source, hash string) bool {
	record := m.Get(source)
	if record == nil || record.ContentHash != hash {
		return false
	}
	_, err := os.Stat(record.OutputPath)
	return err == nil
}

// VersionOwner returns the source other than exclude whose record claims
// version.
func (m *Manifest) VersionOwner(version, exclude string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make([]string, 0, len(m.Entries))
	for source := range m.Entries {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		if source != exclude && m.Entries[source].PatchVersion == version {
			return source, true
		}
	}
	return "", false
}

// Len returns the number of records.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}
