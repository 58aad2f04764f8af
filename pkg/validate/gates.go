package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/coolbeans/sc2patches/pkg/types"
)

const (
	// minSourceBytes is the smallest plausible saved page.
	minSourceBytes = 100
	maxSourceBytes = 10 * 1024 * 1024
)

// SourceGate (V0) checks the saved page is present and plausibly sized.
type SourceGate struct{}

// NewSourceGate creates the V0 gate.
func NewSourceGate() *SourceGate { return &SourceGate{} }

func (g *SourceGate) Name() string { return "V0" }

func (g *SourceGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"file_not_empty": 1.0,
		"file_size":      1.0,
	}
}

func (g *SourceGate) Run(ctx *Context) *GateResult {
	if ctx.SourcePath == "" {
		return skipped(g, "no source page")
	}
	result := newResult(g)

	result.Metrics["file_not_empty"] = boolMetric(ctx.SourceSize > 0)
	result.Metrics["file_size"] = boolMetric(ctx.SourceSize >= minSourceBytes && ctx.SourceSize <= maxSourceBytes)
	if ctx.SourceSize > maxSourceBytes {
		result.Warnings = append(result.Warnings, Issue{
			Metric:  "file_size",
			Message: "page exceeds 10 MB",
			Value:   float64(ctx.SourceSize),
		})
	}

	evaluate(result, ctx.Config, g)
	return result
}

// MetadataGate (V1) checks the patch carries a version, an ISO date and
// its URL.
type MetadataGate struct{}

// NewMetadataGate creates the V1 gate.
func NewMetadataGate() *MetadataGate { return &MetadataGate{} }

func (g *MetadataGate) Name() string { return "V1" }

// Thresholds: the URL is informational.
func (g *MetadataGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"has_version": 1.0,
		"has_date":    1.0,
		"has_url":     0.0,
	}
}

func (g *MetadataGate) Run(ctx *Context) *GateResult {
	if ctx.Patch == nil {
		return skipped(g, "no patch")
	}
	result := newResult(g)
	meta := ctx.Patch.Metadata

	_, dateErr := time.Parse(time.DateOnly, meta.Date)
	result.Metrics["has_version"] = boolMetric(meta.Version != "")
	result.Metrics["has_date"] = boolMetric(dateErr == nil)
	result.Metrics["has_url"] = boolMetric(meta.URL != "")

	evaluate(result, ctx.Config, g)
	return result
}

// AttributionGate (V2) measures how many changes were attributed to a
// catalog entity rather than a faction's unknown sentinel.
type AttributionGate struct{}

// NewAttributionGate creates the V2 gate.
func NewAttributionGate() *AttributionGate { return &AttributionGate{} }

func (g *AttributionGate) Name() string { return "V2" }

func (g *AttributionGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"resolved_entities": 0.60,
		"kept_changes":      0.30,
	}
}

func (g *AttributionGate) Run(ctx *Context) *GateResult {
	if ctx.Patch == nil || ctx.Catalog == nil {
		return skipped(g, "no patch or catalog")
	}
	result := newResult(g)
	changes := ctx.Patch.Changes

	resolved := 0
	for _, c := range changes {
		if ctx.Catalog.Contains(c.EntityID) {
			resolved++
		}
	}
	result.Metrics["resolved_entities"] = ratio(resolved, len(changes))

	if ctx.Tally != nil {
		result.Metrics["kept_changes"] = ratio(ctx.Tally.Kept, ctx.Tally.Leaves)
	}
	if len(changes) == 0 {
		result.Warnings = append(result.Warnings, Issue{
			Metric:  "resolved_entities",
			Message: "patch has no balance changes",
		})
	}

	evaluate(result, ctx.Config, g)
	return result
}

// entityIDPattern matches "{faction}-{snake_case_name}" for any faction.
var entityIDPattern = regexp.MustCompile(`^([a-z]+)-[a-z0-9]+(?:_[a-z0-9]+)*$`)

// ConsistencyGate (V3) checks the patch is internally consistent: ids are
// "{version}-{index}" in order, every change carries the patch version,
// text is present and entity ids are well formed.
type ConsistencyGate struct{}

// NewConsistencyGate creates the V3 gate.
func NewConsistencyGate() *ConsistencyGate { return &ConsistencyGate{} }

func (g *ConsistencyGate) Name() string { return "V3" }

func (g *ConsistencyGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"ids_sequential":   1.0,
		"versions_match":   1.0,
		"text_present":     1.0,
		"entity_ids_valid": 1.0,
	}
}

func (g *ConsistencyGate) Run(ctx *Context) *GateResult {
	if ctx.Patch == nil {
		return skipped(g, "no patch")
	}
	result := newResult(g)
	version := ctx.Patch.Metadata.Version
	changes := ctx.Patch.Changes

	counts := map[string]int{}
	for i, c := range changes {
		checks := []struct {
			metric string
			ok     bool
		}{
			{"ids_sequential", c.ID == fmt.Sprintf("%s-%d", version, i)},
			{"versions_match", c.PatchVersion == version},
			{"text_present", c.RawText != ""},
			{"entity_ids_valid", validEntityID(c.EntityID)},
		}
		for _, check := range checks {
			if check.ok {
				counts[check.metric]++
				continue
			}
			result.Errors = append(result.Errors, Issue{
				Metric:  check.metric,
				Message: fmt.Sprintf("change %d (%s) fails %s", i, c.ID, check.metric),
			})
		}
	}
	for metric := range g.Thresholds() {
		result.Metrics[metric] = ratio(counts[metric], len(changes))
	}

	evaluate(result, ctx.Config, g)
	return result
}

func validEntityID(id string) bool {
	parts := entityIDPattern.FindStringSubmatch(id)
	if parts == nil {
		return false
	}
	_, err := types.ParseFaction(parts[1])
	return err == nil
}
