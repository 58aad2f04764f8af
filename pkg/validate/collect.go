package validate

import (
	"os"
	"path/filepath"

	"github.com/coolbeans/sc2patches/pkg/bulk"
	"github.com/coolbeans/sc2patches/pkg/catalog"
	"github.com/coolbeans/sc2patches/pkg/store"
)

// CollectDir builds one Context per patch in outputDir. The batch manifest,
// when present, links each patch back to its saved page under htmlDir.
func CollectDir(outputDir, htmlDir string, cat *catalog.Catalog) ([]*Context, error) {
	patches, err := store.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}
	manifest, err := bulk.LoadManifest(filepath.Join(outputDir, bulk.ManifestFileName))
	if err != nil {
		return nil, err
	}

	sources := make(map[string]string, len(manifest.Entries))
	for source, record := range manifest.Entries {
		sources[record.PatchVersion] = source
	}

	contexts := make([]*Context, 0, len(patches))
	for _, patch := range patches {
		ctx := &Context{Patch: patch, Catalog: cat}
		if source, ok := sources[patch.Metadata.Version]; ok && htmlDir != "" {
			ctx.SourcePath = filepath.Join(htmlDir, source)
			if info, err := os.Stat(ctx.SourcePath); err == nil {
				ctx.SourceSize = info.Size()
			}
		}
		contexts = append(contexts, ctx)
	}
	return contexts, nil
}
