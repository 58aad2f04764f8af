// Package bulk processes a directory of saved patch-notes pages
// concurrently, skipping pages whose content has not changed.
package bulk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/sc2patches/pkg/pipeline"
	"github.com/coolbeans/sc2patches/pkg/store"
)

// Config controls a batch run.
type Config struct {
	// HTMLDir holds the saved *.html pages.
	HTMLDir string

	// OutputDir receives one {version}.json per page and the manifest.
	OutputDir string

	// Workers bounds the number of pages processed at once.
	Workers int

	// Force reprocesses pages whose content is unchanged.
	Force bool

	// CacheSalt is mixed into every content hash. Changing the catalog or
	// the policy must change the salt.
	CacheSalt string
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache serves unchanged content from a content-addressed cache.
func WithCache(cache *DiskCache) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// Runner runs the pipeline over many pages.
type Runner struct {
	config   Config
	pipeline *pipeline.Pipeline
	cache    *DiskCache
	logger   *zap.Logger
}

// NewRunner creates a Runner. Workers below one are treated as one.
func NewRunner(config Config, p *pipeline.Pipeline, opts ...Option) *Runner {
	if config.Workers < 1 {
		config.Workers = 1
	}
	r := &Runner{config: config, pipeline: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ManifestPath is where the runner keeps its manifest.
func (r *Runner) ManifestPath() string {
	return filepath.Join(r.config.OutputDir, ManifestFileName)
}

// ListPages returns the *.html files of the HTML directory in name order.
func (r *Runner) ListPages() ([]string, error) {
	if _, err := os.Stat(r.config.HTMLDir); err != nil {
		return nil, fmt.Errorf("html directory: %w", err)
	}
	pages, err := filepath.Glob(filepath.Join(r.config.HTMLDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	sort.Strings(pages)
	return pages, nil
}

// Run processes every page in the HTML directory.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	pages, err := r.ListPages()
	if err != nil {
		return nil, err
	}
	return r.Process(ctx, pages)
}

// Process handles the given pages. A page that fails is reported and does
// not stop the others; only cancellation and manifest errors are returned.
func (r *Runner) Process(ctx context.Context, pages []string) (*Report, error) {
	manifest, err := LoadManifest(r.ManifestPath())
	if err != nil {
		return nil, err
	}

	report := &Report{}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Workers)

	for _, page := range pages {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			entry := r.processPage(groupCtx, manifest, page)
			report.add(entry)
			return nil
		})
	}

	waitErr := group.Wait()
	report.sort()

	if err := manifest.Save(r.ManifestPath()); err != nil {
		return report, err
	}
	if waitErr != nil {
		return report, fmt.Errorf("batch interrupted: %w", waitErr)
	}

	r.logger.Info("batch finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("processed", report.Processed),
		zap.Int("cached", report.Cached),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (r *Runner) processPage(ctx context.Context, manifest *Manifest, page string) Entry {
	source := r.sourceName(page)
	logger := r.logger.With(zap.String("source", source))

	content, err := os.ReadFile(page)
	if err != nil {
		logger.Warn("reading page failed", zap.Error(err))
		return Entry{Source: source, Status: StatusFailed, Error: err.Error()}
	}
	hash := ContentHash(r.config.CacheSalt, content)

	if !r.config.Force && manifest.Fresh(source, hash) {
		record := manifest.Get(source)
		return Entry{Source: source, Status: StatusSkipped, Version: record.PatchVersion, Changes: record.Changes}
	}

	if patch, ok := r.cache.Get(hash); ok && !r.config.Force {
		path, err := store.Write(r.config.OutputDir, patch)
		if err == nil {
			r.record(manifest, source, hash, patch, path, logger)
			return Entry{Source: source, Status: StatusCached, Version: patch.Metadata.Version, Changes: len(patch.Changes)}
		}
		logger.Warn("writing cached patch failed", zap.Error(err))
	}

	start := time.Now()
	result, err := r.pipeline.Process(ctx, bytes.NewReader(content), pipeline.Source{Path: page})
	if err != nil {
		logger.Warn("processing page failed", zap.Error(err))
		return Entry{Source: source, Status: StatusFailed, Error: err.Error()}
	}

	path, err := store.Write(r.config.OutputDir, result.Patch)
	if err != nil {
		if errors.Is(err, store.ErrMissingVersion) {
			err = fmt.Errorf("%w: no version in metadata, URL or file name", err)
		}
		logger.Warn("writing patch failed", zap.Error(err))
		return Entry{Source: source, Status: StatusFailed, Pattern: result.Tag.String(), Error: err.Error()}
	}
	if err := r.cache.Set(hash, result.Patch); err != nil {
		logger.Warn("caching patch failed", zap.Error(err))
	}
	r.record(manifest, source, hash, result.Patch, path, logger)

	logger.Debug("page processed", zap.Duration("elapsed", time.Since(start)))
	return Entry{
		Source:  source,
		Status:  StatusProcessed,
		Version: result.Patch.Metadata.Version,
		Pattern: result.Tag.String(),
		Changes: len(result.Patch.Changes),
		Dropped: result.Tally.Leaves - result.Tally.Kept,
	}
}

func (r *Runner) record(manifest *Manifest, source, hash string, patch *store.Patch, path string, logger *zap.Logger) {
	version := patch.Metadata.Version
	if owner, ok := manifest.VersionOwner(version, source); ok {
		logger.Warn("patch version produced by another page; output overwritten",
			zap.String("version", version), zap.String("other", owner))
	}
	manifest.Put(&Record{
		Source:       source,
		ContentHash:  hash,
		PatchVersion: version,
		OutputPath:   path,
		Changes:      len(patch.Changes),
		ProcessedAt:  time.Now().UTC(),
	})
}

func (r *Runner) sourceName(page string) string {
	if rel, err := filepath.Rel(r.config.HTMLDir, page); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(page)
}
