// Package pipeline runs one patch-notes page through content location,
// layout detection, normalization, extraction and classification.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/sc2patches/pkg/catalog"
	"github.com/coolbeans/sc2patches/pkg/document"
	"github.com/coolbeans/sc2patches/pkg/extract"
	"github.com/coolbeans/sc2patches/pkg/metrics"
	"github.com/coolbeans/sc2patches/pkg/normalize"
	"github.com/coolbeans/sc2patches/pkg/pattern"
	"github.com/coolbeans/sc2patches/pkg/store"
)

// ErrClassifierMismatch is returned when a classifier does not return one
// label per change.
var ErrClassifierMismatch = errors.New("classifier returned wrong number of labels")

// Failure reasons reported to metrics.
const (
	FailureRead            = "read"
	FailureContentNotFound = "content_not_found"
	FailureParse           = "parse"
	FailureClassify        = "classify"
)

// Source describes where a page came from. Non-empty fields override
// what the page says about itself.
type Source struct {
	Path    string
	Version string
	URL     string
}

// Result is everything learned about one page.
type Result struct {
	Patch  *store.Patch
	Layout document.Layout
	Tag    pattern.Tag
	Tree   []*normalize.Node
	Tally  extract.Tally
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicy applies an attribution policy during extraction.
func WithPolicy(policy *catalog.Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithClassifier replaces the pass-through classifier.
func WithClassifier(classifier Classifier) Option {
	return func(p *Pipeline) { p.classifier = classifier }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPattern skips detection and always parses with tag.
func WithPattern(tag pattern.Tag) Option {
	return func(p *Pipeline) {
		p.forced = true
		p.tag = tag
	}
}

// Pipeline is safe for concurrent use when its classifier is.
type Pipeline struct {
	catalog    *catalog.Catalog
	policy     *catalog.Policy
	classifier Classifier
	logger     *zap.Logger
	metrics    *metrics.Metrics
	forced     bool
	tag        pattern.Tag
}

// New returns a Pipeline resolving entities against cat.
func New(cat *catalog.Catalog, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:    cat,
		classifier: PassThrough{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile reads the page at src.Path.
func (p *Pipeline) ProcessFile(ctx context.Context, src Source) (*Result, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		p.metrics.ObserveFailure(FailureRead)
		return nil, fmt.Errorf("reading %s: %w", src.Path, err)
	}
	return p.Process(ctx, bytes.NewReader(data), src)
}

// Process runs the whole pipeline on one page.
func (p *Pipeline) Process(ctx context.Context, r io.Reader, src Source) (*Result, error) {
	start := time.Now()
	logger := p.logger.With(zap.String("source", src.Path))

	doc, err := document.Parse(r)
	if err != nil {
		reason := FailureParse
		if errors.Is(err, document.ErrContentNotFound) {
			reason = FailureContentNotFound
		}
		p.metrics.ObserveFailure(reason)
		return nil, fmt.Errorf("processing %s: %w", sourceName(src), err)
	}

	meta := p.metadata(doc.Metadata, src)

	tag := p.tag
	if !p.forced {
		tag = pattern.Detect(doc.Content())
	}
	tree := pattern.Parse(tag, doc.Content())
	logger.Debug("normalized page",
		zap.String("layout", string(doc.Layout)),
		zap.Stringer("pattern", tag),
		zap.Bool("forced", p.forced),
		zap.Int("leaves", normalize.CountChanges(tree)))

	var tally extract.Tally
	trace := func(d extract.Decision) {
		tally.Record(d)
		if !d.Kept {
			logger.Debug("dropped change",
				zap.String("rule", d.Rule),
				zap.String("entity", d.Change.EntityID),
				zap.String("text", d.Change.Text))
		}
	}
	changes := extract.New(p.catalog, extract.WithPolicy(p.policy), extract.WithTrace(trace)).Extract(tree)

	patch := store.NewPatch(meta, changes)
	if err := p.classify(ctx, patch); err != nil {
		p.metrics.ObserveFailure(FailureClassify)
		return nil, fmt.Errorf("classifying %s: %w", sourceName(src), err)
	}

	p.metrics.ObserveDocument(string(doc.Layout), tag.String(), time.Since(start))
	p.metrics.ObserveTally(tally)
	logger.Info("processed page",
		zap.String("version", meta.Version),
		zap.Stringer("pattern", tag),
		zap.Int("changes", len(patch.Changes)),
		zap.Int("dropped", tally.Leaves-tally.Kept))

	return &Result{
		Patch:  patch,
		Layout: doc.Layout,
		Tag:    tag,
		Tree:   tree,
		Tally:  tally,
	}, nil
}

// metadata applies source overrides and falls back to a version spelled
// in the URL or file name.
func (p *Pipeline) metadata(meta document.Metadata, src Source) document.Metadata {
	if src.URL != "" {
		meta.URL = src.URL
	}
	if src.Version != "" {
		meta.Version = src.Version
	}
	if meta.Version == "" {
		meta.Version = document.VersionFromSlug(meta.URL)
	}
	if meta.Version == "" && src.Path != "" {
		meta.Version = document.VersionFromSlug(filepath.Base(src.Path))
	}
	return meta
}

func (p *Pipeline) classify(ctx context.Context, patch *store.Patch) error {
	if len(patch.Changes) == 0 {
		return nil
	}
	labels, err := p.classifier.Classify(ctx, patch)
	if err != nil {
		return err
	}
	if len(labels) != len(patch.Changes) {
		return fmt.Errorf("%w: got %d for %d changes", ErrClassifierMismatch, len(labels), len(patch.Changes))
	}
	for i, label := range labels {
		patch.Changes[i].ChangeType = strings.TrimSpace(label)
	}
	return nil
}

func sourceName(src Source) string {
	if src.Path != "" {
		return src.Path
	}
	if src.URL != "" {
		return src.URL
	}
	return "page"
}
