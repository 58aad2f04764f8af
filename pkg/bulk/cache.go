package bulk

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coolbeans/sc2patches/pkg/store"
)

// ContentHash returns the SHA-256 of salt followed by content. The salt
// covers every input besides the page itself, such as the catalog.
func ContentHash(salt string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// DiskCache stores processed patches keyed by content hash. A renamed or
// copied page with identical content is served from the cache.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &DiskCache{dir: dir}, nil
}

// Get returns the cached patch for hash.
func (c *DiskCache) Get(hash string) (*store.Patch, bool) {
	if c == nil {
		return nil, false
	}
	data, err := os.ReadFile(c.pathFor(hash))
	if err != nil {
		return nil, false
	}
	patch := &store.Patch{}
	if err := json.Unmarshal(data, patch); err != nil {
		return nil, false
	}
	return patch, true
}

// Set stores patch under hash.
func (c *DiskCache) Set(hash string, patch *store.Patch) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	path := c.pathFor(hash)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file %s: %w", path, err)
	}
	return nil
}

func (c *DiskCache) pathFor(hash string) string {
	return filepath.Join(c.dir, hash+".json")
}
